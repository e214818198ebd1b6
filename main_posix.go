//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"flashcat.cloud/cpudash/pkg/pprof"
)

func profile() {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGUSR2)
	for {
		sig := <-sc
		switch sig {
		case syscall.SIGUSR2:
			go pprof.Go()
		}
	}
}

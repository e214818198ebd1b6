package pprof

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
)

var (
	started uint32
	addr    string
)

// Go starts a pprof listener on a random loopback port. Only the first call
// starts a listener; later calls log the existing address.
func Go() {
	if !atomic.CompareAndSwapUint32(&started, 0, 1) {
		log.Println("I! pprof already started,", addr)
		return
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Println("E! pprof listen error:", err)
		atomic.StoreUint32(&started, 0)
		return
	}
	addr = fmt.Sprintf("http://127.0.0.1:%d/debug/pprof/", listener.Addr().(*net.TCPAddr).Port)
	log.Printf("I! pprof started at %s", addr)

	if err = http.Serve(listener, Handler()); err != nil {
		log.Println("E! pprof serve error:", err)
	}
}

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

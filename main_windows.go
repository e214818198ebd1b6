//go:build windows

package main

func profile() {
}

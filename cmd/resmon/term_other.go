//go:build !linux

package main

// disableInputEcho is a no-op where TCGETS/TCSETS are unavailable.
func disableInputEcho(fd int) (func(), error) {
	return nil, nil
}

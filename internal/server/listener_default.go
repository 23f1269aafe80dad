//go:build !linux && !darwin

// Package server provides network listener functionality
package server

import (
	"net"
)

// GetListener listens on addr. Socket activation is only supported on unix.
func GetListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

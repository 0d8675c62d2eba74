//go:build !linux
// +build !linux

// File: socket/sys_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub syscall layer for unsupported platforms.

package socket

import "github.com/momentics/hioload-udp/api"

func sysSocket(bool) (int, error) { return -1, api.ErrNotSupported }

func sysBind(int, api.Address, bool) error { return api.ErrNotSupported }

func sysSendTo(int, []byte, api.Address, bool) (int, error) { return 0, api.ErrNotSupported }

func sysRecvFrom(int, []byte) (int, api.Address, error) {
	return 0, api.Address{}, api.ErrNotSupported
}

func sysSetsockopt(int, int, int, []byte) error { return api.ErrNotSupported }

func sysGetsockname(int) (api.Address, error) { return api.Address{}, api.ErrNotSupported }

func sysClose(int) error { return api.ErrNotSupported }

func tosOption(bool) (level, name int) { return 0, 0 }

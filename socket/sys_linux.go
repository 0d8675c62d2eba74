//go:build linux
// +build linux

// File: socket/sys_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux syscall layer for Socket.

package socket

import (
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-udp/api"
	"golang.org/x/sys/unix"
)

// sysSocket creates a non-blocking, close-on-exec UDP socket.
func sysSocket(ipv6 bool) (int, error) {
	family := unix.AF_INET
	if ipv6 {
		family = unix.AF_INET6
	}
	return unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
}

func toSockaddr(a api.Address, ipv6 bool) (unix.Sockaddr, error) {
	ap := a.AddrPort()
	if !ap.IsValid() {
		return nil, fmt.Errorf("%w: invalid address", api.ErrInvalidArgument)
	}
	ip := ap.Addr()
	if ipv6 {
		// v4 destinations go out as ::ffff:a.b.c.d
		return &unix.SockaddrInet6{Addr: ip.As16(), Port: int(ap.Port())}, nil
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return nil, fmt.Errorf("%w: IPv6 address %s on IPv4 socket", api.ErrInvalidArgument, a)
	}
	return &unix.SockaddrInet4{Addr: ip.As4(), Port: int(ap.Port())}, nil
}

func fromSockaddr(sa unix.Sockaddr) api.Address {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return api.AddressFrom(netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)))
	case *unix.SockaddrInet6:
		ip := netip.AddrFrom16(sa.Addr).Unmap()
		return api.AddressFrom(netip.AddrPortFrom(ip, uint16(sa.Port)))
	}
	return api.Address{}
}

func sysBind(fd int, a api.Address, ipv6 bool) error {
	sa, err := toSockaddr(a, ipv6)
	if err != nil {
		return err
	}
	return unix.Bind(fd, sa)
}

// sysSendTo issues one sendmsg and reports the kernel's byte count unchanged.
func sysSendTo(fd int, b []byte, a api.Address, ipv6 bool) (int, error) {
	sa, err := toSockaddr(a, ipv6)
	if err != nil {
		return 0, err
	}
	return unix.SendmsgN(fd, b, nil, sa, 0)
}

func sysRecvFrom(fd int, b []byte) (int, api.Address, error) {
	n, sa, err := unix.Recvfrom(fd, b, 0)
	if err != nil {
		return n, api.Address{}, err
	}
	return n, fromSockaddr(sa), nil
}

func sysSetsockopt(fd, level, name int, value []byte) error {
	return unix.SetsockoptString(fd, level, name, string(value))
}

func sysGetsockname(fd int) (api.Address, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return api.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

// tosOption returns the level/name pair carrying the traffic class for the family.
func tosOption(ipv6 bool) (level, name int) {
	if ipv6 {
		return unix.IPPROTO_IPV6, unix.IPV6_TCLASS
	}
	return unix.IPPROTO_IP, unix.IP_TOS
}

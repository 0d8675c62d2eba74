// File: api/address.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"fmt"
	"net/netip"
)

// Address is an opaque IPv4 or IPv6 UDP endpoint.
// The zero value is invalid.
type Address struct {
	ap netip.AddrPort
}

// AddressFrom wraps ap.
func AddressFrom(ap netip.AddrPort) Address {
	return Address{ap: ap}
}

// ParseAddress parses "ip:port" or "[ip6]:port".
func ParseAddress(s string) (Address, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return Address{ap: ap}, nil
}

// MustParseAddress is ParseAddress that panics on malformed input. Intended for
// constants in tests and examples.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddrPort returns the underlying netip value.
func (a Address) AddrPort() netip.AddrPort { return a.ap }

// IsValid reports whether the address carries an IP and port.
func (a Address) IsValid() bool { return a.ap.IsValid() }

// Port returns the port in host order.
func (a Address) Port() uint16 { return a.ap.Port() }

// Is6 reports whether the address is a native IPv6 address (IPv4-mapped counts as v4).
func (a Address) Is6() bool {
	return a.ap.Addr().Is6() && !a.ap.Addr().Is4In6()
}

// String renders ip:port, or "invalid" for the zero Address.
func (a Address) String() string {
	if !a.ap.IsValid() {
		return "invalid"
	}
	return a.ap.String()
}

package portscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ResolutionError is returned when the scan target cannot be resolved. No
// port is probed in that case.
type ResolutionError struct {
	Target string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve target %q: %v", e.Target, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ResolveTarget resolves host once, preferring IPv4 addresses.
func ResolveTarget(ctx context.Context, resolver Resolver, host string) (ScanTarget, error) {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return ScanTarget{}, &ResolutionError{Target: host, Err: errors.New("empty target")}
	}

	if ip := net.ParseIP(host); ip != nil {
		return ScanTarget{Host: host, IP: ip}, nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return ScanTarget{}, &ResolutionError{Target: host, Err: err}
	}
	if len(addrs) == 0 {
		return ScanTarget{}, &ResolutionError{Target: host, Err: errors.New("no addresses found")}
	}

	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return ScanTarget{Host: host, IP: v4}, nil
		}
	}
	return ScanTarget{Host: host, IP: addrs[0].IP}, nil
}

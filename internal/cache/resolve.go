package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrNoAddrs = errors.New("no cache addresses configured")

// ResolveAddrs returns addrs when set, otherwise the addresses behind a
// headless service name, each joined with port.
func ResolveAddrs(ctx context.Context, addrs []string, service string, port int) ([]string, error) {
	if len(addrs) > 0 {
		return addrs, nil
	}
	if service == "" {
		return nil, ErrNoAddrs
	}

	ips, err := net.DefaultResolver.LookupHost(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", service, err)
	}

	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.JoinHostPort(ip, strconv.Itoa(port)))
	}
	return out, nil
}

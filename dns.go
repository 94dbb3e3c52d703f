package ircd

import (
	"context"
	"net"
	"strings"
)

// ReverseLookupFunc performs a reverse DNS lookup for addr (host or
// host:port), returning a hostname. Lookup failure is non-fatal to the
// session — the driver falls back to the peer's literal address.
//
// The core only depends on this function shape, never on net's resolver
// directly, so tests can substitute a deterministic stub.
type ReverseLookupFunc func(ctx context.Context, addr string) (string, error)

// DefaultReverseLookup resolves addr via the standard resolver. It
// accepts either a bare IP or an "ip:port" pair.
func DefaultReverseLookup(ctx context.Context, addr string) (string, error) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return strings.TrimSuffix(names[0], "."), nil
}

package registry

import (
	"context"
	"net"
	"strings"
)

// HostLookup derives the candidate registry names for a host. The registry
// may index an instance under a different name than the one clients dial,
// so resolution tries the reported hostname, the canonical hostname and the
// raw address text in turn.
type HostLookup interface {
	// Resolve maps host to a single network address in textual form.
	Resolve(ctx context.Context, host string) (string, error)
	// Hostname returns the reported hostname for addr, or addr itself
	// when no reverse mapping exists.
	Hostname(ctx context.Context, addr string) string
	// Canonical returns the canonical (fully qualified) hostname for
	// addr, or addr itself when no reverse mapping exists.
	Canonical(ctx context.Context, addr string) string
}

// NetLookup is the net-package backed HostLookup.
type NetLookup struct {
	// Resolver defaults to net.DefaultResolver.
	Resolver *net.Resolver
}

func (l NetLookup) resolver() *net.Resolver {
	if l.Resolver != nil {
		return l.Resolver
	}
	return net.DefaultResolver
}

func (l NetLookup) Resolve(ctx context.Context, host string) (string, error) {
	addrs, err := l.resolver().LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return addrs[0], nil
}

func (l NetLookup) Hostname(ctx context.Context, addr string) string {
	names, err := l.resolver().LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return addr
	}
	return strings.TrimSuffix(names[0], ".")
}

func (l NetLookup) Canonical(ctx context.Context, addr string) string {
	name := l.Hostname(ctx, addr)
	if name == addr {
		return addr
	}
	// Forward-confirm the reverse mapping; keep the raw address text when
	// the name doesn't resolve back.
	if _, err := l.resolver().LookupHost(ctx, name); err != nil {
		return addr
	}
	return name
}

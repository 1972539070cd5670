package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InstanceSource is the read side of the registry consumed by resolution.
type InstanceSource interface {
	GetByHost(name string) []Instance
}

// DiscoveryError reports that no live instance was found for a host after
// exhausting every lookup strategy.
type DiscoveryError struct {
	Host  string
	Tried []string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("no live service instance for host %q (tried %v)", e.Host, e.Tried)
}

// Resolver finds one live daemon instance for a target host. The name used
// in the registry may not match the name the caller holds, so the resolver
// tries the reported hostname, the canonical hostname and the raw address
// text, stopping at the first strategy that yields a live instance. No
// ranking among multiple live candidates: the first encountered wins.
type Resolver struct {
	src    InstanceSource
	lookup HostLookup
	log    *zap.Logger
}

func NewResolver(src InstanceSource, lookup HostLookup, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{src: src, lookup: lookup, log: log}
}

// Resolve returns a live instance for host, or *DiscoveryError when all
// strategies miss. Liveness is as observed at lookup time; it is not
// re-checked before use.
func (r *Resolver) Resolve(ctx context.Context, host string) (Instance, error) {
	addr, err := r.lookup.Resolve(ctx, host)
	if err != nil {
		return Instance{}, &DiscoveryError{Host: host, Tried: []string{host}}
	}

	strategies := []struct {
		kind string
		name func() string
	}{
		{"hostname", func() string { return r.lookup.Hostname(ctx, addr) }},
		{"canonical hostname", func() string { return r.lookup.Canonical(ctx, addr) }},
		{"address", func() string { return addr }},
	}

	tried := make([]string, 0, len(strategies))
	for _, st := range strategies {
		name := st.name()
		tried = append(tried, name)
		r.log.Info("searching service instance", zap.String("strategy", st.kind), zap.String("name", name))
		if inst, ok := selectLive(r.src.GetByHost(name)); ok {
			r.log.Info("found service instance",
				zap.String("strategy", st.kind),
				zap.String("host", inst.Host),
				zap.Int("execution_port", inst.ExecutionPort),
				zap.Int("result_port", inst.ResultPort))
			return inst, nil
		}
	}
	r.log.Info("no live service instances were found", zap.String("host", host))
	return Instance{}, &DiscoveryError{Host: host, Tried: tried}
}

// selectLive picks the first live instance from a lookup result.
func selectLive(instances []Instance) (Instance, bool) {
	for _, inst := range instances {
		if inst.Alive {
			return inst, true
		}
	}
	return Instance{}, false
}

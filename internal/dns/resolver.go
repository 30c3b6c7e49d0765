package dns

import (
	"context"
	"net"
)

// Resolver turns a surviving domain into up to maxIPs A/AAAA addresses
// (spec.md §6 "capped by max_ips_per_domain, default 4").
type Resolver struct {
	resolver *net.Resolver
	maxIPs   int
}

func NewResolver(maxIPs int) *Resolver {
	if maxIPs <= 0 {
		maxIPs = 4
	}
	return &Resolver{resolver: net.DefaultResolver, maxIPs: maxIPs}
}

func (r *Resolver) Resolve(ctx context.Context, domain string) ([]string, error) {
	addrs, err := r.resolver.LookupHost(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(addrs) > r.maxIPs {
		addrs = addrs[:r.maxIPs]
	}
	return addrs, nil
}

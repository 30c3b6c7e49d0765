package dns

import (
	"context"
	"log"

	"netwatch/internal/models"
	"netwatch/internal/queue"
)

const logPrefix = "[dns]"

// Collector wires one Source through the filter Chain and Resolver into
// Target Queue enqueues with source="dns" (spec.md §6 "DNS collector").
type Collector struct {
	source   Source
	chain    *Chain
	resolver *Resolver
	queue    *queue.Queue
}

func NewCollector(source Source, chain *Chain, resolver *Resolver, q *queue.Queue) *Collector {
	return &Collector{source: source, chain: chain, resolver: resolver, queue: q}
}

// Run streams observations until ctx is cancelled or the source closes.
func (c *Collector) Run(ctx context.Context) error {
	observations, err := c.source.Stream(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o, ok := <-observations:
			if !ok {
				return nil
			}
			c.handle(ctx, o)
		}
	}
}

func (c *Collector) handle(ctx context.Context, o Observation) {
	if !c.chain.Allow(o) {
		return
	}

	ips, err := c.resolver.Resolve(ctx, o.Domain)
	if err != nil {
		log.Printf("%s resolve %s failed: %v", logPrefix, o.Domain, err)
		return
	}

	for _, ip := range ips {
		if _, err := c.queue.Enqueue(ctx, ip, models.SourceDNS, queue.PriorityDNS); err != nil {
			log.Printf("%s enqueue %s failed: %v", logPrefix, ip, err)
		}
	}
}

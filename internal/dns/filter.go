package dns

import "strings"

// Filter decides whether an Observation should continue through the
// pipeline. Filters never see or alter the ClientIP-shaped part of their
// job: they read Observation by value and return a bool.
type Filter interface {
	Name() string
	Allow(o Observation) bool
}

// Chain runs filters in order, short-circuiting on the first rejection.
type Chain struct {
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

func (c *Chain) Allow(o Observation) bool {
	for _, f := range c.filters {
		if !f.Allow(o) {
			return false
		}
	}
	return true
}

// SuffixFilter keeps only domains ending in one of a configured set of
// suffixes (empty set allows everything).
type SuffixFilter struct {
	Suffixes []string
}

func (f SuffixFilter) Name() string { return "suffix" }

func (f SuffixFilter) Allow(o Observation) bool {
	if len(f.Suffixes) == 0 {
		return true
	}
	for _, suffix := range f.Suffixes {
		if strings.HasSuffix(o.Domain, suffix) {
			return true
		}
	}
	return false
}

// QTypeFilter keeps only the configured query types (empty set allows
// everything, including unknown qtype).
type QTypeFilter struct {
	Allowed []string
}

func (f QTypeFilter) Name() string { return "qtype" }

func (f QTypeFilter) Allow(o Observation) bool {
	if len(f.Allowed) == 0 {
		return true
	}
	for _, qt := range f.Allowed {
		if o.QType == qt {
			return true
		}
	}
	return false
}

// ClientFilter drops observations from client IPs on a blocklist. It reads
// ClientIP only to make this decision; the field is stripped before the
// observation reaches the resolver stage (spec.md §6 "Client IPs must not
// be persisted").
type ClientFilter struct {
	Blocked map[string]struct{}
}

func (f ClientFilter) Name() string { return "client" }

func (f ClientFilter) Allow(o Observation) bool {
	if len(f.Blocked) == 0 {
		return true
	}
	_, blocked := f.Blocked[o.ClientIP]
	return !blocked
}

// LengthFilter rejects domains shorter than Min or longer than Max
// characters (Max<=0 disables the upper bound).
type LengthFilter struct {
	Min int
	Max int
}

func (f LengthFilter) Name() string { return "length" }

func (f LengthFilter) Allow(o Observation) bool {
	n := len(o.Domain)
	if n < f.Min {
		return false
	}
	if f.Max > 0 && n > f.Max {
		return false
	}
	return true
}

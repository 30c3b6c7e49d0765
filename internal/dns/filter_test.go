package dns

import "testing"

func TestSuffixFilter(t *testing.T) {
	f := SuffixFilter{Suffixes: []string{".example.com"}}
	if !f.Allow(Observation{Domain: "www.example.com"}) {
		t.Errorf("expected matching suffix to be allowed")
	}
	if f.Allow(Observation{Domain: "www.other.com"}) {
		t.Errorf("expected non-matching suffix to be rejected")
	}
}

func TestQTypeFilter(t *testing.T) {
	f := QTypeFilter{Allowed: []string{"A"}}
	if !f.Allow(Observation{QType: "A"}) {
		t.Errorf("expected A to be allowed")
	}
	if f.Allow(Observation{QType: "AAAA"}) {
		t.Errorf("expected AAAA to be rejected")
	}
}

func TestClientFilter(t *testing.T) {
	f := ClientFilter{Blocked: map[string]struct{}{"10.0.0.1": {}}}
	if f.Allow(Observation{ClientIP: "10.0.0.1"}) {
		t.Errorf("expected blocked client to be rejected")
	}
	if !f.Allow(Observation{ClientIP: "10.0.0.2"}) {
		t.Errorf("expected unblocked client to be allowed")
	}
}

func TestLengthFilter(t *testing.T) {
	f := LengthFilter{Min: 3, Max: 10}
	if f.Allow(Observation{Domain: "ab"}) {
		t.Errorf("expected too-short domain to be rejected")
	}
	if f.Allow(Observation{Domain: "way-too-long-domain.example"}) {
		t.Errorf("expected too-long domain to be rejected")
	}
	if !f.Allow(Observation{Domain: "ok.com"}) {
		t.Errorf("expected domain within bounds to be allowed")
	}
}

func TestChainShortCircuits(t *testing.T) {
	chain := NewChain(
		SuffixFilter{Suffixes: []string{".com"}},
		LengthFilter{Min: 6},
	)
	if chain.Allow(Observation{Domain: "a.com"}) {
		t.Errorf("expected short domain to be rejected by length filter")
	}
	if !chain.Allow(Observation{Domain: "example.com"}) {
		t.Errorf("expected domain passing all filters to be allowed")
	}
}

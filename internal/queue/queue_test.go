package queue

import (
	"testing"

	"netwatch/internal/models"
)

func TestPriorityFor(t *testing.T) {
	cases := []struct {
		source models.TargetSource
		want   int
	}{
		{models.SourceStatic, PriorityStatic},
		{models.SourceAPI, PriorityAPI},
		{models.SourceDNS, PriorityDNS},
		{models.SourceRemeasure, PriorityRemeasure},
	}
	for _, c := range cases {
		if got := PriorityFor(c.source); got != c.want {
			t.Errorf("PriorityFor(%s) = %d, want %d", c.source, got, c.want)
		}
	}
}

func TestPriorityOrdering(t *testing.T) {
	if !(PriorityStatic >= PriorityDNS && PriorityDNS >= PriorityRemeasure) {
		t.Fatalf("priority bands must be non-increasing: static=%d dns=%d remeasure=%d",
			PriorityStatic, PriorityDNS, PriorityRemeasure)
	}
}

package scheduler

import "testing"

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()
	if s.BatchLimit != 200 {
		t.Errorf("expected default batch limit 200, got %d", s.BatchLimit)
	}
	if s.TTL.Seconds() != 86400 {
		t.Errorf("expected default ttl 86400s, got %v", s.TTL)
	}
	if s.Interval.Seconds() != 3600 {
		t.Errorf("expected default interval 3600s, got %v", s.Interval)
	}
}

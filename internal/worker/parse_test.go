package worker

import "testing"

func TestParseTraceroute(t *testing.T) {
	output := " 1  192.0.2.1  0.512 ms  0.488 ms  0.470 ms\n" +
		" 2  * * *\n" +
		" 3  198.51.100.1  12.204 ms  11.998 ms *\n"

	hops := parseTraceroute(output)
	if len(hops) != 3 {
		t.Fatalf("expected 3 hops, got %d", len(hops))
	}

	if hops[0].HopNumber != 1 || hops[0].HopIP == nil || *hops[0].HopIP != "192.0.2.1" {
		t.Fatalf("unexpected hop 1: %+v", hops[0])
	}
	if hops[0].RTTMs == nil {
		t.Fatalf("expected rtt for hop 1")
	}

	if hops[1].HopNumber != 2 || hops[1].HopIP != nil {
		t.Fatalf("expected hop 2 to be a timeout, got %+v", hops[1])
	}
	if hops[1].RTTMs != nil {
		t.Fatalf("expected nil rtt for all-timeout hop, got %v", *hops[1].RTTMs)
	}

	if hops[2].HopIP == nil || *hops[2].HopIP != "198.51.100.1" {
		t.Fatalf("unexpected hop 3 address: %+v", hops[2])
	}
}

func TestParseTracerouteSkipsUnparsableLines(t *testing.T) {
	output := "traceroute to 192.0.2.1 (192.0.2.1), 30 hops max, 60 byte packets\n" +
		" 1  192.0.2.1  0.5 ms\n"
	hops := parseTraceroute(output)
	if len(hops) != 1 {
		t.Fatalf("expected banner line to be skipped, got %d hops", len(hops))
	}
}

func TestParseMTR(t *testing.T) {
	output := "HOST,1,1,192.0.2.1,0,0.5,0.5,0.5,0.5,0.0\n" +
		"HOST,1,2,192.0.2.1,0,0.7,0.7,0.7,0.7,0.0\n" +
		"HOST,2,1,???,100,0,0,0,0,0\n"

	hops := parseMTR(output)
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d", len(hops))
	}
	if hops[0].RTTMs == nil {
		t.Fatalf("expected an rtt sample for hop 1")
	}
	if hops[1].HopIP != nil {
		t.Fatalf("expected hop 2 to have no address (100%% loss), got %+v", hops[1])
	}
}

func TestParseScamper(t *testing.T) {
	output := `{"type":"trace","hops":[{"probe_ttl":1,"addr":"192.0.2.1","rtt":0.5},{"probe_ttl":1,"addr":"192.0.2.1","rtt":0.6}]}` + "\n"
	hops := parseScamper(output)
	if len(hops) != 1 {
		t.Fatalf("expected 1 hop, got %d", len(hops))
	}
	if hops[0].HopNumber != 1 || hops[0].HopIP == nil || *hops[0].HopIP != "192.0.2.1" {
		t.Fatalf("unexpected hop: %+v", hops[0])
	}
}

func TestMeanOf(t *testing.T) {
	if meanOf(nil) != nil {
		t.Fatalf("expected nil mean for no samples")
	}
	mean := meanOf([]float64{1, 2, 3})
	if mean == nil || *mean != 2 {
		t.Fatalf("expected mean 2, got %v", mean)
	}
}

package worker

import "testing"

// TestPercentDoneConsistency checks that whenever rings_total is set and
// axis-3 position is updated, percent_done equals
// clamp((|position.axis3| + (ring_counter-1)*360) / (rings_total*360), 0, 1) * 100.
func TestPercentDoneConsistency(t *testing.T) {
	tel := &Telemetry{}
	tel.SetRingTotals(10)

	cases := []struct {
		ringCounter int
		axis3       float64
		want        float64
	}{
		{1, 0, 0},
		{1, 180, 5},
		{1, 360, 10},
		{5, 0, 40},
		{5, 180, 45},
		{10, 360, 100},
	}
	for _, c := range cases {
		tel.ringMu.Lock()
		tel.ringCounter = c.ringCounter
		tel.ringMu.Unlock()
		tel.SetPosition([3]float64{0, 0, c.axis3})
		got := tel.getPercentDone()
		if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("ringCounter=%d axis3=%v: percent_done = %v, want %v", c.ringCounter, c.axis3, got, c.want)
		}
	}
}

// TestPercentDoneClampedAtOne verifies the formula's clamp(..., 0, 1)
// upper bound holds even if axis-3 overshoots past the final ring's 360°.
func TestPercentDoneClampedAtOne(t *testing.T) {
	tel := &Telemetry{}
	tel.SetRingTotals(2)
	tel.ringMu.Lock()
	tel.ringCounter = 2
	tel.ringMu.Unlock()
	tel.SetPosition([3]float64{0, 0, 720})
	if got := tel.getPercentDone(); got != 100 {
		t.Fatalf("percent_done = %v, want clamped 100", got)
	}
}

// TestPercentDoneUnsetUntilRingsTotalKnown verifies no percentage is
// computed before SetRingTotals has been called.
func TestPercentDoneUnsetUntilRingsTotalKnown(t *testing.T) {
	tel := &Telemetry{}
	tel.SetPosition([3]float64{0, 0, 180})
	if got := tel.getPercentDone(); got != 0 {
		t.Fatalf("percent_done = %v, want 0 before rings_total is known", got)
	}
}

// TestBusyAndKillFlags exercises the two atomic-backed advisory flags.
func TestBusyAndKillFlags(t *testing.T) {
	tel := &Telemetry{}
	if tel.Busy() || tel.KillRequested() {
		t.Fatal("expected both flags clear initially")
	}
	tel.SetBusy(true)
	if !tel.Busy() {
		t.Fatal("expected busy=true after SetBusy(true)")
	}
	tel.RequestKill()
	if !tel.KillRequested() {
		t.Fatal("expected kill_requested=true after RequestKill")
	}
}

// TestReadSnapshotConsistency checks Read aggregates all fields coherently.
func TestReadSnapshotConsistency(t *testing.T) {
	tel := &Telemetry{}
	tel.SetRingTotals(4)
	tel.SetSpeed([3]float64{1, 2, 3})
	tel.SetPosition([3]float64{10, 20, 90})
	tel.AdvanceRing()

	snap := tel.Read()
	if snap.RingsTotal != 4 {
		t.Fatalf("RingsTotal = %d, want 4", snap.RingsTotal)
	}
	if snap.RingCounter != 2 {
		t.Fatalf("RingCounter = %d, want 2", snap.RingCounter)
	}
	if snap.Speed != [3]float64{1, 2, 3} {
		t.Fatalf("Speed = %v, want [1 2 3]", snap.Speed)
	}
	if snap.Position != [3]float64{10, 20, 90} {
		t.Fatalf("Position = %v, want [10 20 90]", snap.Position)
	}
}

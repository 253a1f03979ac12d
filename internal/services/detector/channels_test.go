package detector

import "testing"

func TestZScoreNeutralBelowMinHistory(t *testing.T) {
	s := NewZScoreSignal(2.0)
	r := s.Compute(10, 1e6, 0.5, History{Returns: []float64{0.01, 0.02}})
	if r.Triggered || r.Confidence != 0 {
		t.Fatalf("expected neutral reading, got %+v", r)
	}
}

func TestZScoreZeroVarianceGuard(t *testing.T) {
	s := NewZScoreSignal(2.0)
	hist := History{Returns: []float64{0.01, 0.01, 0.01}}
	r := s.Compute(10, 1e6, 0.02, hist)
	if r.Value != r.Value { // NaN check
		t.Fatalf("z-score is NaN under zero variance")
	}
	if !r.Triggered {
		t.Fatalf("large deviation on zero variance should trigger, got %+v", r)
	}
}

func TestCUSUMResetsAfterTrigger(t *testing.T) {
	s := NewCUSUMSignal(0.005, 0.02)
	hist := History{Returns: []float64{0, 0, 0}}

	first := s.Compute(10, 1e6, 0.02, hist)
	if first.Triggered {
		t.Fatalf("first accumulation should not trigger yet: %+v", first)
	}
	second := s.Compute(10, 1e6, 0.02, hist)
	if !second.Triggered {
		t.Fatalf("second accumulation should trigger: %+v", second)
	}

	// post-trigger statistic restarts from zero, not the accumulated value
	third := s.Compute(10, 1e6, 0.02, hist)
	if third.Triggered {
		t.Fatalf("statistic did not reset after trigger: %+v", third)
	}
	if third.Value >= second.Value {
		t.Fatalf("expected restart below pre-trigger statistic: %v >= %v", third.Value, second.Value)
	}
}

func TestAmihudZeroVolume(t *testing.T) {
	s := NewAmihudSignal(3.0)
	for i := 0; i < 5; i++ {
		r := s.Compute(10, 0, 0.05, History{})
		if r.Value != 0 {
			t.Fatalf("zero volume must yield zero illiquidity, got %+v", r)
		}
	}
}

func TestAmihudSurge(t *testing.T) {
	s := NewAmihudSignal(3.0)
	// stable illiquidity baseline
	for i := 0; i < 10; i++ {
		s.Compute(10, 1e6, 0.001, History{})
	}
	// same return on a fraction of the volume: illiquidity jumps
	r := s.Compute(10, 1e4, 0.001, History{})
	if !r.Triggered {
		t.Fatalf("expected illiquidity surge, got %+v", r)
	}
	if r.Confidence <= 0 {
		t.Fatalf("expected positive confidence, got %+v", r)
	}
}

func TestVolumeSurgeRatio(t *testing.T) {
	s := NewVolumeSurgeSignal(3.0)
	hist := History{Volumes: []float64{1e6, 1e6, 1e6}}

	calm := s.Compute(10, 1.5e6, 0, hist)
	if calm.Triggered {
		t.Fatalf("1.5x volume should not trigger: %+v", calm)
	}
	surge := s.Compute(10, 2e7, 0, hist)
	if !surge.Triggered {
		t.Fatalf("20x volume should trigger: %+v", surge)
	}
	if surge.Value != 20 {
		t.Fatalf("expected ratio 20, got %v", surge.Value)
	}
}

func TestChannelWeightsSumToOne(t *testing.T) {
	d := New(Config{})
	var total float64
	for _, ch := range d.channels {
		total += ch.Weight()
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("channel weights sum to %v, want 1", total)
	}
}

package detector

import (
	"reflect"
	"testing"

	"TickAttrib/internal/domain/models"
)

func feedSequence(d *MultiSignalDetector, prices, volumes []float64) []models.DetectionResult {
	out := make([]models.DetectionResult, 0, len(prices))
	for i := range prices {
		out = append(out, d.Feed(prices[i], volumes[i]))
	}
	return out
}

func TestFeedDeterministic(t *testing.T) {
	prices := []float64{10, 10.01, 9.99, 10.02, 10.00, 10.03, 10.5, 10.4, 10.6, 10.55}
	volumes := []float64{1e6, 1.1e6, 0.9e6, 1e6, 1.2e6, 1e6, 9e6, 2e6, 5e6, 1e6}

	a := feedSequence(New(Config{WindowSize: 5}), prices, volumes)
	b := feedSequence(New(Config{WindowSize: 5}), prices, volumes)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical input sequences produced different results")
	}
}

func TestWarmupNeverAnomalous(t *testing.T) {
	d := New(Config{WindowSize: 10})
	floor := d.warmupFloor()

	// extreme moves must still be suppressed during warm-up
	price := 10.0
	for i := 0; i < floor-1; i++ {
		price *= 1.5
		res := d.Feed(price, 1e9)
		if res.IsAnomaly {
			t.Fatalf("feed %d: anomaly during warm-up", i+1)
		}
		if res.DetectionMethod != "warming up" {
			t.Fatalf("feed %d: method = %q", i+1, res.DetectionMethod)
		}
	}
}

func TestSpikeTriggersZScoreAndVolume(t *testing.T) {
	d := New(Config{WindowSize: 10})

	// ten flat ticks: returns alternating ±0.01%, steady volume
	price := 10.0
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			price *= 1.0001
		} else {
			price *= 0.9999
		}
		res := d.Feed(price, 1e6)
		if res.IsAnomaly {
			t.Fatalf("flat tick %d flagged anomalous: %+v", i+1, res)
		}
	}

	// spike: +5% return on 20x volume
	res := d.Feed(price*1.05, 2e7)
	if !res.IsAnomaly {
		t.Fatalf("spike tick not flagged: %+v", res)
	}
	if !res.Signals["z_score"].Triggered {
		t.Fatalf("z_score not triggered on spike: %+v", res.Signals["z_score"])
	}
	if !res.Signals["volume_surge"].Triggered {
		t.Fatalf("volume_surge not triggered on spike: %+v", res.Signals["volume_surge"])
	}
	if res.AnomalyProbability < 0 || res.AnomalyProbability > 1 {
		t.Fatalf("posterior out of range: %v", res.AnomalyProbability)
	}
}

func TestCumulativeDriftPath(t *testing.T) {
	// thresholds raised so only the cumulative path can fire
	d := New(Config{
		WindowSize:         5,
		ZThreshold:         50,
		PosteriorThreshold: 0.99,
		ScoreThreshold:     99,
	})

	price := 100.0
	for i := 0; i < 4; i++ {
		d.Feed(price, 1e6) // flat warm-up, zero returns
	}

	// five consecutive +0.12% ticks: each below any per-tick threshold,
	// cumulative 0.6% > 0.5% by the fifth
	var res models.DetectionResult
	for i := 0; i < 5; i++ {
		price *= 1.0012
		res = d.Feed(price, 1e6)
		if i < 4 && res.IsAnomaly {
			t.Fatalf("drift tick %d fired early: %+v", i+1, res)
		}
	}
	if !res.IsAnomaly {
		t.Fatalf("cumulative drift did not fire by fifth tick: %+v", res)
	}
	if res.DetectionMethod == "" || res.DetectionMethod == "all signals calm" {
		t.Fatalf("unexpected method %q", res.DetectionMethod)
	}
}

func TestFusionMonotoneInChannelConfidence(t *testing.T) {
	d := New(Config{})

	base := map[string]models.SignalReading{
		"z_score":      {Confidence: 0.3},
		"cusum":        {Confidence: 0.2},
		"amihud":       {Confidence: 0.1},
		"volume_surge": {Confidence: 0.1},
	}
	for name := range base {
		for _, bump := range []float64{0.1, 0.3, 0.5} {
			raised := map[string]models.SignalReading{}
			for k, v := range base {
				raised[k] = v
			}
			sr := raised[name]
			sr.Confidence += bump
			raised[name] = sr

			lo := d.bayesianFusion(base)
			hi := d.bayesianFusion(raised)
			if hi < lo {
				t.Fatalf("raising %s confidence by %v lowered posterior %v -> %v", name, bump, lo, hi)
			}
		}
	}
}

func TestResultNeverNaN(t *testing.T) {
	d := New(Config{WindowSize: 5})
	// zero and negative volume, identical prices (zero variance)
	inputs := []struct{ p, v float64 }{
		{10, 0}, {10, -5}, {10, 0}, {10, 0}, {10, 1e6}, {10, 0},
	}
	for i, in := range inputs {
		res := d.Feed(in.p, in.v)
		if res.AnomalyProbability != res.AnomalyProbability || res.AnomalyScore != res.AnomalyScore {
			t.Fatalf("feed %d produced NaN: %+v", i+1, res)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	prices := []float64{10, 10.2, 9.8, 10.5, 10.1, 10.9}
	volumes := []float64{1e6, 2e6, 1e6, 8e6, 1e6, 3e6}

	d := New(Config{WindowSize: 5})
	first := feedSequence(d, prices, volumes)
	d.Reset()
	second := feedSequence(d, prices, volumes)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reset detector diverged from fresh run")
	}
}

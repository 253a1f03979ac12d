package detector

import (
	"fmt"
	"math"

	"TickAttrib/internal/domain/models"
)

// ZScoreSignal measures how far the current return deviates from its
// trailing-window mean, in standard deviations.
type ZScoreSignal struct {
	weight    float64
	threshold float64
}

func NewZScoreSignal(threshold float64) *ZScoreSignal {
	return &ZScoreSignal{weight: 0.3, threshold: threshold}
}

func (s *ZScoreSignal) Name() string    { return "z_score" }
func (s *ZScoreSignal) Weight() float64 { return s.weight }
func (s *ZScoreSignal) Reset()          {}

func (s *ZScoreSignal) Compute(_, _, ret float64, hist History) models.SignalReading {
	returns := hist.Returns
	if len(returns) < minSamples {
		return warming("z-score warming up")
	}

	m := mean(returns)
	var variance float64
	for _, x := range returns {
		variance += (x - m) * (x - m)
	}
	variance /= float64(len(returns))
	std := 1e-8
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	z := (ret - m) / std

	confidence := math.Min(math.Abs(z)/(s.threshold*2.5), 1.0)
	triggered := math.Abs(z) > s.threshold

	desc := fmt.Sprintf("z=%.2fσ (threshold %.1fσ)", z, s.threshold)
	if triggered {
		desc = fmt.Sprintf("z-score deviation %+.2fσ", z)
	}
	return models.SignalReading{
		Value:      round(z, 3),
		Confidence: round(confidence, 4),
		Triggered:  triggered,
		Desc:       desc,
	}
}

// CUSUMSignal is a cumulative-sum control chart (Page, 1954). It keeps two
// persistent accumulators for positive and negative mean drift and fires
// when either exceeds the threshold h. Both accumulators reset to zero on
// trigger so one sustained drift cannot re-alarm every tick.
type CUSUMSignal struct {
	weight     float64
	drift      float64
	thresholdH float64
	sPos       float64
	sNeg       float64
}

func NewCUSUMSignal(drift, thresholdH float64) *CUSUMSignal {
	return &CUSUMSignal{weight: 0.3, drift: drift, thresholdH: thresholdH}
}

func (s *CUSUMSignal) Name() string    { return "cusum" }
func (s *CUSUMSignal) Weight() float64 { return s.weight }

func (s *CUSUMSignal) Reset() {
	s.sPos = 0
	s.sNeg = 0
}

func (s *CUSUMSignal) Compute(_, _, ret float64, hist History) models.SignalReading {
	returns := hist.Returns
	if len(returns) < minSamples {
		return warming("cusum warming up")
	}

	m := mean(returns)
	s.sPos = math.Max(0, s.sPos+(ret-m)-s.drift)
	s.sNeg = math.Max(0, s.sNeg-(ret-m)-s.drift)

	stat := math.Max(s.sPos, s.sNeg)
	triggered := stat > s.thresholdH
	confidence := math.Min(stat/(s.thresholdH*2), 1.0)

	var desc string
	if triggered {
		direction := "downward"
		if s.sPos > s.sNeg {
			direction = "upward"
		}
		desc = fmt.Sprintf("cusum %s shift (S=%.4f, h=%g)", direction, stat, s.thresholdH)
		s.sPos = 0
		s.sNeg = 0
	} else {
		desc = fmt.Sprintf("cusum S+=%.4f S-=%.4f", s.sPos, s.sNeg)
	}

	return models.SignalReading{
		Value:      round(stat, 5),
		Confidence: round(confidence, 4),
		Triggered:  triggered,
		Desc:       desc,
	}
}

// AmihudSignal tracks the Amihud (2002) illiquidity ratio: absolute return
// per million units of volume. A surge relative to its own recent history
// signals thinning liquidity.
type AmihudSignal struct {
	weight     float64
	surgeRatio float64
	history    []float64
}

const amihudHistoryCap = 20

func NewAmihudSignal(surgeRatio float64) *AmihudSignal {
	return &AmihudSignal{weight: 0.2, surgeRatio: surgeRatio}
}

func (s *AmihudSignal) Name() string    { return "amihud" }
func (s *AmihudSignal) Weight() float64 { return s.weight }
func (s *AmihudSignal) Reset()          { s.history = s.history[:0] }

func (s *AmihudSignal) Compute(_, volume, ret float64, _ History) models.SignalReading {
	illiq := 0.0
	if volume > 0 {
		illiq = math.Abs(ret) / (volume / 1e6)
	}

	s.history = append(s.history, illiq)
	if len(s.history) > amihudHistoryCap {
		s.history = s.history[len(s.history)-amihudHistoryCap:]
	}

	if len(s.history) < minSamples {
		return models.SignalReading{Value: round(illiq, 6), Desc: "amihud warming up"}
	}

	// the ratio baseline excludes the sample just appended
	baseline := mean(s.history[:len(s.history)-1])
	ratio := 1.0
	if baseline > 0 {
		ratio = illiq / baseline
	}

	triggered := ratio > s.surgeRatio
	confidence := 0.0
	if ratio > 1 {
		confidence = math.Min((ratio-1)/(s.surgeRatio*2), 1.0)
	}

	desc := fmt.Sprintf("amihud ratio=%.2fx", ratio)
	if triggered {
		desc = fmt.Sprintf("illiquidity surge %.1fx", ratio)
	}
	return models.SignalReading{
		Value:      round(illiq, 6),
		Confidence: round(confidence, 4),
		Triggered:  triggered,
		Desc:       desc,
	}
}

// VolumeSurgeSignal compares current volume against the trailing-window mean.
type VolumeSurgeSignal struct {
	weight     float64
	surgeRatio float64
}

func NewVolumeSurgeSignal(surgeRatio float64) *VolumeSurgeSignal {
	return &VolumeSurgeSignal{weight: 0.2, surgeRatio: surgeRatio}
}

func (s *VolumeSurgeSignal) Name() string    { return "volume_surge" }
func (s *VolumeSurgeSignal) Weight() float64 { return s.weight }
func (s *VolumeSurgeSignal) Reset()          {}

func (s *VolumeSurgeSignal) Compute(_, volume, _ float64, hist History) models.SignalReading {
	volumes := hist.Volumes
	if len(volumes) < minSamples {
		return models.SignalReading{Value: 1.0, Desc: "volume ratio warming up"}
	}

	meanVol := mean(volumes)
	ratio := 1.0
	if meanVol > 0 {
		ratio = volume / meanVol
	}

	triggered := ratio > s.surgeRatio
	confidence := 0.0
	if ratio > 1 {
		confidence = math.Min((ratio-1)/(s.surgeRatio*3), 1.0)
	}

	desc := fmt.Sprintf("volume ratio=%.1fx", ratio)
	if triggered {
		desc = fmt.Sprintf("volume surge %.1fx (threshold %.1fx)", ratio, s.surgeRatio)
	}
	return models.SignalReading{
		Value:      round(ratio, 2),
		Confidence: round(confidence, 4),
		Triggered:  triggered,
		Desc:       desc,
	}
}

package detector

import (
	"fmt"
	"math"
	"strings"

	"TickAttrib/internal/domain/models"
)

// Config holds the tunable parameters of the fused detector. Zero values are
// replaced with the defaults below; thresholds are configuration, not
// constants, because the trigger union was chosen empirically.
type Config struct {
	WindowSize         int     `yaml:"window_size"`
	PriorAnomaly       float64 `yaml:"prior_anomaly"`
	ZThreshold         float64 `yaml:"z_threshold"`
	CUSUMDrift         float64 `yaml:"cusum_drift"`
	CUSUMThreshold     float64 `yaml:"cusum_h"`
	VolumeSurgeRatio   float64 `yaml:"volume_surge"`
	AmihudSurgeRatio   float64 `yaml:"amihud_surge"`
	PosteriorThreshold float64 `yaml:"posterior_threshold"`
	ScoreThreshold     float64 `yaml:"score_threshold"`
	CumulativeReturn   float64 `yaml:"cumulative_return"`
	CumulativeSpan     int     `yaml:"cumulative_span"`
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	if c.PriorAnomaly <= 0 {
		c.PriorAnomaly = 0.05
	}
	if c.ZThreshold <= 0 {
		c.ZThreshold = 2.0
	}
	if c.CUSUMDrift <= 0 {
		c.CUSUMDrift = 0.005
	}
	if c.CUSUMThreshold <= 0 {
		c.CUSUMThreshold = 0.02
	}
	if c.VolumeSurgeRatio <= 0 {
		c.VolumeSurgeRatio = 3.0
	}
	if c.AmihudSurgeRatio <= 0 {
		c.AmihudSurgeRatio = 3.0
	}
	if c.PosteriorThreshold <= 0 {
		c.PosteriorThreshold = 0.6
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 15
	}
	if c.CumulativeReturn <= 0 {
		c.CumulativeReturn = 0.005
	}
	if c.CumulativeSpan <= 0 {
		c.CumulativeSpan = 5
	}
	return c
}

// MultiSignalDetector fuses four independent signal channels into one
// posterior anomaly probability via Bayesian log-odds accumulation. Feed is
// a pure state transition: identical input sequences yield identical output
// sequences. Not safe for concurrent use; each stream owns its own instance.
type MultiSignalDetector struct {
	cfg      Config
	channels []SignalChannel

	priceWindow  []float64
	volumeWindow []float64
	returnWindow []float64
	lastPrice    float64
	hasLast      bool
	tickCount    int
}

// New builds a detector with its closed channel set.
func New(cfg Config) *MultiSignalDetector {
	cfg = cfg.withDefaults()
	return &MultiSignalDetector{
		cfg: cfg,
		channels: []SignalChannel{
			NewZScoreSignal(cfg.ZThreshold),
			NewCUSUMSignal(cfg.CUSUMDrift, cfg.CUSUMThreshold),
			NewAmihudSignal(cfg.AmihudSurgeRatio),
			NewVolumeSurgeSignal(cfg.VolumeSurgeRatio),
		},
	}
}

// Feed consumes one tick and returns the fused detection result.
func (d *MultiSignalDetector) Feed(price, volume float64) models.DetectionResult {
	d.tickCount++

	ret := 0.0
	if d.hasLast && d.lastPrice > 0 {
		ret = (price - d.lastPrice) / d.lastPrice
	}

	// history snapshot excludes the current sample so no channel scores a
	// tick against itself
	hist := History{
		Returns: append([]float64(nil), d.returnWindow...),
		Volumes: append([]float64(nil), d.volumeWindow...),
		Prices:  append([]float64(nil), d.priceWindow...),
	}

	d.priceWindow = appendBounded(d.priceWindow, price, d.cfg.WindowSize)
	d.volumeWindow = appendBounded(d.volumeWindow, volume, d.cfg.WindowSize)
	d.returnWindow = appendBounded(d.returnWindow, ret, d.cfg.WindowSize)
	d.lastPrice = price
	d.hasLast = true

	if len(d.returnWindow) < d.warmupFloor() {
		return d.buildResult(false, 0, 0, nil, ret, "warming up")
	}

	signals := make(map[string]models.SignalReading, len(d.channels))
	for _, ch := range d.channels {
		signals[ch.Name()] = ch.Compute(price, volume, ret, hist)
	}

	posterior := d.bayesianFusion(signals)
	score := d.compositeScore(signals)

	// third trigger path: slow multi-tick ramps that no instantaneous
	// channel catches on its own
	cumulative := 0.0
	cumulativeTrigger := false
	if len(d.returnWindow) >= minSamples {
		cumulative = sumTail(d.returnWindow, d.cfg.CumulativeSpan)
		cumulativeTrigger = math.Abs(cumulative) > d.cfg.CumulativeReturn
	}

	isAnomaly := posterior > d.cfg.PosteriorThreshold ||
		score > d.cfg.ScoreThreshold ||
		cumulativeTrigger

	var fired []string
	for _, ch := range d.channels {
		if sr := signals[ch.Name()]; sr.Triggered {
			fired = append(fired, sr.Desc)
		}
	}
	if cumulativeTrigger {
		fired = append(fired, fmt.Sprintf("cumulative drift %+.2f%%", cumulative*100))
	}
	method := "all signals calm"
	if len(fired) > 0 {
		method = strings.Join(fired, " + ")
	}

	return d.buildResult(isAnomaly, posterior, score, signals, ret, method)
}

// Reset returns the detector to its initial state.
func (d *MultiSignalDetector) Reset() {
	d.priceWindow = d.priceWindow[:0]
	d.volumeWindow = d.volumeWindow[:0]
	d.returnWindow = d.returnWindow[:0]
	d.hasLast = false
	d.tickCount = 0
	for _, ch := range d.channels {
		ch.Reset()
	}
}

func (d *MultiSignalDetector) warmupFloor() int {
	return max(minSamples, d.cfg.WindowSize/2)
}

// bayesianFusion sums weighted log-likelihood ratios onto the prior odds and
// converts back to a probability. Confidences are clamped to [0.01, 0.99] so
// the log stays finite; the summed log-odds is capped before exponentiating.
func (d *MultiSignalDetector) bayesianFusion(signals map[string]models.SignalReading) float64 {
	priorOdds := d.cfg.PriorAnomaly / (1 - d.cfg.PriorAnomaly)
	logOdds := math.Log(priorOdds + 1e-10)

	for _, ch := range d.channels {
		confidence := signals[ch.Name()].Confidence
		pGivenAnomaly := math.Max(confidence, 0.01)
		pGivenNormal := math.Max(1-confidence, 0.01)
		logOdds += ch.Weight() * math.Log(pGivenAnomaly/pGivenNormal+1e-10)
	}

	odds := math.Exp(math.Min(logOdds, 10))
	return round(odds/(1+odds), 4)
}

// compositeScore is the weighted average confidence mapped to 0-100. It is
// an explanatory magnitude, complementary to the posterior.
func (d *MultiSignalDetector) compositeScore(signals map[string]models.SignalReading) float64 {
	var totalWeight, weightedSum float64
	for _, ch := range d.channels {
		totalWeight += ch.Weight()
		weightedSum += ch.Weight() * signals[ch.Name()].Confidence
	}
	if totalWeight <= 0 {
		return 0
	}
	return round(math.Min(weightedSum/totalWeight*100, 100), 1)
}

func (d *MultiSignalDetector) buildResult(isAnomaly bool, probability, score float64,
	signals map[string]models.SignalReading, ret float64, method string,
) models.DetectionResult {
	zVal := 0.0
	volRatio := 1.0
	if sr, ok := signals["z_score"]; ok {
		zVal = sr.Value
	}
	if sr, ok := signals["volume_surge"]; ok {
		volRatio = sr.Value
	}
	if signals == nil {
		signals = map[string]models.SignalReading{}
	}
	return models.DetectionResult{
		IsAnomaly:          isAnomaly,
		AnomalyProbability: probability,
		AnomalyScore:       score,
		ZScore:             zVal,
		VolumeRatio:        volRatio,
		CurrentReturn:      round(ret*100, 4),
		DetectionMethod:    method,
		Signals:            signals,
		WindowSize:         d.cfg.WindowSize,
		PosteriorThreshold: d.cfg.PosteriorThreshold,
		TickCount:          d.tickCount,
	}
}

func appendBounded(xs []float64, x float64, maxLen int) []float64 {
	xs = append(xs, x)
	if len(xs) > maxLen {
		xs = xs[len(xs)-maxLen:]
	}
	return xs
}

func sumTail(xs []float64, n int) float64 {
	start := len(xs) - n
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, x := range xs[start:] {
		sum += x
	}
	return sum
}

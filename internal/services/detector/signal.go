package detector

import (
	"math"

	"TickAttrib/internal/domain/models"
)

// minSamples is the warm-up floor every channel shares: below this much
// history a channel reports a neutral, untriggered reading.
const minSamples = 3

// History is the trailing window state handed to each channel. It excludes
// the current sample, which is appended only after all channels have run.
type History struct {
	Returns []float64
	Volumes []float64
	Prices  []float64
}

// SignalChannel is one independent statistical estimator consuming a tick
// and producing a normalized confidence in [0, 1]. The set of channels is
// closed: ZScore, CUSUM, Amihud, VolumeSurge.
type SignalChannel interface {
	Name() string
	Weight() float64
	Compute(price, volume, ret float64, hist History) models.SignalReading
	Reset()
}

func warming(desc string) models.SignalReading {
	return models.SignalReading{Desc: desc}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

package models

// SignalReading is the per-channel output for a single tick. Readings are
// recomputed every tick and never persisted.
type SignalReading struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Triggered  bool    `json:"triggered"`
	Desc       string  `json:"desc"`
}

// DetectionResult is produced once per tick by the detector and consumed
// immediately by the replay orchestrator.
type DetectionResult struct {
	IsAnomaly          bool                     `json:"is_anomaly"`
	AnomalyProbability float64                  `json:"anomaly_probability"`
	AnomalyScore       float64                  `json:"anomaly_score"`
	ZScore             float64                  `json:"z_score"`
	VolumeRatio        float64                  `json:"volume_ratio"`
	CurrentReturn      float64                  `json:"current_return"` // percent
	DetectionMethod    string                   `json:"detection_method"`
	Signals            map[string]SignalReading `json:"signals"`
	WindowSize         int                      `json:"window_size"`
	PosteriorThreshold float64                  `json:"posterior_threshold"`
	TickCount          int                      `json:"tick_count"`
}

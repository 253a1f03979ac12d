package models

// ReplayPoint is one enriched data point emitted to a feed consumer.
type ReplayPoint struct {
	Timestamp      string           `json:"timestamp"`
	Open           float64          `json:"open"`
	High           float64          `json:"high"`
	Low            float64          `json:"low"`
	Close          float64          `json:"close"`
	Volume         float64          `json:"volume"`
	HasAnomaly     bool             `json:"hasAnomaly"`
	AnomalyDetails *KnowledgeGraph  `json:"anomalyDetails,omitempty"`
	DetectionStats *DetectionResult `json:"detectionStats,omitempty"`
}

// Control message actions accepted on a replay stream.
const (
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionSetSpeed = "set_speed"
)

// ControlMessage is an inbound replay control command. Unknown actions are
// ignored; out-of-range speeds are clamped, never rejected.
type ControlMessage struct {
	Action string  `json:"action"`
	Value  float64 `json:"value,omitempty"`
}

// SystemEvent is one entry of the recent operational event feed.
type SystemEvent struct {
	Time    string `json:"time"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SystemMetrics is a point-in-time snapshot of process-wide counters.
type SystemMetrics struct {
	WSConnections     int64  `json:"ws_connections"`
	TotalTicksPushed  int64  `json:"total_ticks_pushed"`
	AnomaliesDetected int64  `json:"anomalies_detected"`
	LLMCalls          int64  `json:"llm_calls"`
	LLMCacheHits      int64  `json:"llm_cache_hits"`
	AvgLLMLatencyMS   int64  `json:"avg_llm_latency_ms"`
	UptimeFormatted   string `json:"uptime_formatted"`
	CacheMode         string `json:"cache_mode"`
	CacheEntries      int64  `json:"cache_entries"`
}

// AlignmentSnapshot is the initial chart payload served before a stream
// starts: the first few ticks of a case re-stamped to recent wall clock.
type AlignmentSnapshot struct {
	Symbol     string        `json:"symbol"`
	SymbolName string        `json:"symbolName"`
	Data       []ReplayPoint `json:"data"`
}

// CaseRequest binds the case identifier path parameter.
type CaseRequest struct {
	CaseID string `param:"case_id" validate:"required,min=1,max=64"`
}

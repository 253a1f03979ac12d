package models

// Attribution provenance tags.
const (
	SourceCached      = "cached"
	SourceLiveLLM     = "live_llm"
	SourcePrecomputed = "precomputed"
)

// GraphNode is one typed entity in an attribution knowledge graph.
type GraphNode struct {
	ID    string `json:"id"`
	Group string `json:"group"`
}

// GraphLink is a directed causal edge between two entities.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  string `json:"value"` // relation label
}

// KnowledgeGraph is the causal explanation attached to a detected anomaly.
// Immutable once cached; Source records where it came from.
type KnowledgeGraph struct {
	Summary       string             `json:"summary"`
	Nodes         []GraphNode        `json:"nodes"`
	Links         []GraphLink        `json:"links"`
	CoT           []string           `json:"cot"` // ordered causal-chain steps
	QualityScores map[string]float64 `json:"quality_scores,omitempty"`
	Source        string             `json:"attribution_source,omitempty"`
}

// Valid reports whether the graph meets the minimal contract: a non-empty
// summary. Anything less is treated as a malformed external response.
func (kg *KnowledgeGraph) Valid() bool {
	return kg != nil && kg.Summary != ""
}

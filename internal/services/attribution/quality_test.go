package attribution

import (
	"testing"

	"TickAttrib/internal/domain/models"
)

func TestTemporalConsistencyScores(t *testing.T) {
	cases := []struct {
		name string
		cot  []string
		want float64
	}{
		{"too short", []string{"1. only step"}, 50},
		{"numbered with stamps", []string{"1. [09:31] a", "2. [09:32] b"}, 90},
		{"numbered without stamps", []string{"1. a", "2. b"}, 70},
		{"unnumbered", []string{"first", "second"}, 40},
	}
	for _, tc := range cases {
		if got := temporalConsistency(tc.cot); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEntityCoverage(t *testing.T) {
	text := "announcement about MoTai published on the wire"

	if got := entityCoverage(nil, text); got != 0 {
		t.Fatalf("no nodes: %v", got)
	}

	nodes := []models.GraphNode{
		{ID: "MoTai", Group: "stock"},
		{ID: "unrelated entity", Group: "concept"},
	}
	// one of two matched: 50*1 + 30 base = 80
	if got := entityCoverage(nodes, text); got != 80 {
		t.Fatalf("coverage = %v, want 80", got)
	}

	all := []models.GraphNode{{ID: "MoTai", Group: "stock"}}
	// full coverage caps at 100
	if got := entityCoverage(all, text); got != 100 {
		t.Fatalf("full coverage = %v, want 100", got)
	}
}

func TestLogicalClosure(t *testing.T) {
	nodes := []models.GraphNode{
		{ID: "a", Group: "source"},
		{ID: "b", Group: "stock"},
	}

	if got := logicalClosure(nil, nil); got != 0 {
		t.Fatalf("no nodes: %v", got)
	}
	if got := logicalClosure(nodes, nil); got != 20 {
		t.Fatalf("no links: %v", got)
	}

	links := []models.GraphLink{{Source: "a", Target: "b", Value: "drives"}}
	if got := logicalClosure(nodes, links); got != 100 {
		t.Fatalf("fully connected: %v", got)
	}

	half := []models.GraphLink{{Source: "a", Target: "x", Value: "drives"}}
	if got := logicalClosure(nodes, half); got != 50 {
		t.Fatalf("half connected: %v", got)
	}
}

func TestOverallQualityBlend(t *testing.T) {
	kg := &models.KnowledgeGraph{
		Summary: "s",
		Nodes:   []models.GraphNode{{ID: "MoTai", Group: "stock"}},
		Links:   []models.GraphLink{{Source: "MoTai", Target: "MoTai", Value: "x"}},
		CoT:     []string{"1. [09:31] a", "2. [09:32] b"},
	}
	scores := AssessQuality(kg, "MoTai in text")

	// 90*0.3 + 100*0.4 + 100*0.3 = 97
	if scores[ScoreOverallQuality] != 97 {
		t.Fatalf("overall = %v, want 97 (components %+v)", scores[ScoreOverallQuality], scores)
	}
}

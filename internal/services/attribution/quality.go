package attribution

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"TickAttrib/internal/domain/models"
)

// Quality score keys attached to every produced graph.
const (
	ScoreTemporalConsistency = "temporal_consistency"
	ScoreEntityCoverage      = "entity_coverage"
	ScoreLogicalClosure      = "logical_closure"
	ScoreOverallQuality      = "overall_quality"
)

var clockPattern = regexp.MustCompile(`\d{2}:\d{2}`)

// AssessQuality scores an attribution graph against the text it was derived
// from, on three axes: whether the causal chain is time-ordered, how many
// graph entities actually occur in the input, and whether the links connect
// the node set. Scores are 0-100; overall is the weighted blend.
func AssessQuality(kg *models.KnowledgeGraph, text string) map[string]float64 {
	temporal := temporalConsistency(kg.CoT)
	coverage := entityCoverage(kg.Nodes, text)
	closure := logicalClosure(kg.Nodes, kg.Links)

	return map[string]float64{
		ScoreTemporalConsistency: temporal,
		ScoreEntityCoverage:      coverage,
		ScoreLogicalClosure:      closure,
		ScoreOverallQuality:      round1(temporal*0.3 + coverage*0.4 + closure*0.3),
	}
}

// temporalConsistency checks that chain steps are numbered in order and carry
// clock annotations. A chain too short to judge gets a neutral 50.
func temporalConsistency(cot []string) float64 {
	if len(cot) < 2 {
		return 50.0
	}

	numbered := true
	for i, step := range cot {
		if !strings.HasPrefix(strings.TrimSpace(step), strconv.Itoa(i+1)) {
			numbered = false
			break
		}
	}

	clockStamps := 0
	for _, step := range cot {
		clockStamps += len(clockPattern.FindAllString(step, -1))
	}

	switch {
	case numbered && clockStamps >= 2:
		return 90.0
	case numbered:
		return 70.0
	default:
		return 40.0
	}
}

// entityCoverage measures how many node identifiers literally occur in the
// input text, with a base score of 30 for a non-empty node set.
func entityCoverage(nodes []models.GraphNode, text string) float64 {
	if len(nodes) == 0 {
		return 0.0
	}

	matched := 0
	for _, n := range nodes {
		if n.ID != "" && strings.Contains(text, n.ID) {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(nodes))
	return round1(math.Min(coverage*100+30, 100))
}

// logicalClosure measures how much of the node set the link endpoints reach.
// Nodes with no links at all score a flat 20.
func logicalClosure(nodes []models.GraphNode, links []models.GraphLink) float64 {
	if len(nodes) == 0 {
		return 0.0
	}
	if len(links) == 0 {
		return 20.0
	}

	nodeIDs := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		nodeIDs[n.ID] = true
	}

	linked := make(map[string]bool, len(links)*2)
	for _, l := range links {
		linked[l.Source] = true
		linked[l.Target] = true
	}

	reached := 0
	for id := range linked {
		if nodeIDs[id] {
			reached++
		}
	}

	connectivity := float64(reached) / float64(len(nodes))
	return round1(math.Min(connectivity*100, 100))
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

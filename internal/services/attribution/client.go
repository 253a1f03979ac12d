package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	pkghttp "TickAttrib/pkg/http"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/util"
)

// ErrNotConfigured is returned when no API credentials are set; callers fall
// through to the precomputed graph.
var ErrNotConfigured = errors.New("attribution: llm api not configured")

const systemPrompt = `You are a financial anomaly attribution engine. You receive a time-aligned slice of news items captured around a detected price anomaly.

Your tasks:
1. Named entity recognition: extract the relevant entities (instruments, concepts, capital actors, information sources, policies).
2. Relation extraction: identify causal/transmission/trigger relations between them.
3. Chain of thought: build the complete causal chain of the anomaly in time order.

Respond with strict JSON only, no markdown fences:
{
    "summary": "one concise attribution conclusion (under 30 words)",
    "nodes": [{"id": "entity name", "group": "entity type"}],
    "links": [{"source": "cause entity", "target": "effect entity", "value": "relation (verb phrase)"}],
    "cot": ["1. [HH:MM] first causal step", "2. [HH:MM] transmission", "3. [HH:MM] capital response", "4. conclusion"]
}

Allowed node groups: stock, concept, source, capital, action, policy, sector.
Rules: at least 3 nodes of different groups; links must form a DAG in causal direction; every cot step carries an increasing [HH:MM] stamp; summary reads like a trader briefing. Output valid JSON.`

// Config holds LLM endpoint settings.
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	MaxInputChars int           `yaml:"max_input_chars"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	if c.Timeout <= 0 {
		c.Timeout = 25 * time.Second
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1500
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = 3000
	}
	return c
}

// Client resolves causal attributions through an OpenAI-compatible chat
// completions endpoint. Every produced graph carries quality scores.
type Client struct {
	cfg  Config
	http *pkghttp.Client
	l    *applogger.Logger
}

var _ domrepo.Attributor = (*Client)(nil)

func NewClient(cfg Config, l *applogger.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		l:    l,
	}
}

// Configured reports whether live attribution is available.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.Model != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// rawGraph tolerates field-level damage: a malformed nodes/links/cot array
// degrades to empty instead of failing the whole response.
type rawGraph struct {
	Summary string          `json:"summary"`
	Nodes   json.RawMessage `json:"nodes"`
	Links   json.RawMessage `json:"links"`
	CoT     json.RawMessage `json:"cot"`
}

// ExtractKnowledgeGraph sends the joined news text to the LLM and parses the
// response into a scored knowledge graph. The call is bounded by the
// configured timeout on top of whatever deadline ctx carries.
func (c *Client) ExtractKnowledgeGraph(ctx context.Context, text string) (*models.KnowledgeGraph, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Attribute the anomaly from this time-ordered news window:\n" + util.Truncate(text, c.cfg.MaxInputChars)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	var resp chatResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.cfg.APIKey,
		},
		Body: req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}

	kg, err := parseGraph(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	kg.QualityScores = AssessQuality(kg, text)

	if c.l != nil {
		c.l.Info("llm attribution ok",
			applogger.String("summary", util.Truncate(kg.Summary, 50)),
			applogger.Float64("overall_quality", kg.QualityScores[ScoreOverallQuality]),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return kg, nil
}

func parseGraph(content string) (*models.KnowledgeGraph, error) {
	clean := stripFences(content)

	var raw rawGraph
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("parse attribution json: %w", err)
	}
	if raw.Summary == "" {
		return nil, fmt.Errorf("parse attribution json: missing summary")
	}

	kg := &models.KnowledgeGraph{Summary: raw.Summary}
	if err := json.Unmarshal(raw.Nodes, &kg.Nodes); err != nil {
		kg.Nodes = nil
	}
	if err := json.Unmarshal(raw.Links, &kg.Links); err != nil {
		kg.Links = nil
	}
	if err := json.Unmarshal(raw.CoT, &kg.CoT); err != nil {
		kg.CoT = nil
	}
	return kg, nil
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Package refine implements the text-refinement port on the OpenAI chat
// completion API. The model turns raw email text into work-item content:
// a title, a cleaned description, a summary, labels and action items.
package refine

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
	"github.com/weapplyse/weapply-pm/pkg/apperr"
	"github.com/weapplyse/weapply-pm/pkg/httputil"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	defaultMaxTokens   = 1024
	defaultTemperature = 0.3

	systemPrompt = `You turn raw inbound emails into concise work items for a project
management tool. Respond with a single JSON object and nothing else:
{
  "title": "short imperative title, max 80 chars",
  "description": "cleaned description in markdown, keep all facts",
  "summary": "one or two sentences",
  "labels": ["lowercase", "topic", "labels"],
  "priority": 1-4 (1 urgent, 2 high, 3 normal, 4 low),
  "action_items": ["concrete next steps if any"]
}
Do not invent facts. Quoted forward headers and signatures are noise.`
)

// Config for the OpenAI refiner.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Refiner calls OpenAI chat completions and parses the JSON reply.
type Refiner struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

var _ out.Refiner = (*Refiner)(nil)

// NewRefiner creates a refiner. It shares the pooled OpenAI HTTP client.
func NewRefiner(cfg Config) *Refiner {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = httputil.OpenAIClient()

	return &Refiner{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
	}
}

// Refine sends the email to the model and parses its JSON reply.
func (r *Refiner) Refine(ctx context.Context, subject, content string) (*out.RefinementResult, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Subject: " + subject + "\n\n" + content},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, apperr.ExternalError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.ExternalError("openai", nil)
	}

	return parseResult(resp.Choices[0].Message.Content)
}

// refinementPayload mirrors the JSON schema the prompt asks for.
type refinementPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Labels      []string `json:"labels"`
	Priority    int      `json:"priority"`
	ActionItems []string `json:"action_items"`
}

// parseResult parses the model reply leniently: code fences get stripped,
// an out-of-range priority falls back to normal.
func parseResult(raw string) (*out.RefinementResult, error) {
	raw = stripCodeFence(raw)

	var payload refinementPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeExternalError, "unparseable refinement reply", 502)
	}

	priority := domain.Priority(payload.Priority)
	if priority < domain.PriorityUrgent || priority > domain.PriorityLow {
		priority = domain.PriorityNormal
	}

	labels := make([]string, 0, len(payload.Labels))
	for _, l := range payload.Labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			labels = append(labels, l)
		}
	}

	return &out.RefinementResult{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		Summary:     strings.TrimSpace(payload.Summary),
		Labels:      labels,
		Priority:    priority,
		ActionItems: payload.ActionItems,
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one despite the response format hint.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

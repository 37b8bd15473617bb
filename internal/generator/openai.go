package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// Compile-time interface check
var _ Generator = (*OpenAI)(nil)

const systemPrompt = "You are an expert technical career coach. You output STRICT JSON only."

// ChatService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates roadmaps with a chat model behind an OpenAI-compatible
// API such as OpenRouter. Any failure falls back to the Mock roadmap.
type OpenAI struct {
	chat     ChatService
	model    string
	fallback Generator
	logger   *slog.Logger
}

// NewOpenAI creates a generator for the given endpoint. An empty apiKey
// yields a generator that always uses the fallback.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	g := &OpenAI{
		model:    model,
		fallback: NewMock(),
		logger:   slog.Default().With("component", "generator"),
	}
	if apiKey == "" {
		return g
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	g.chat = client.Chat.Completions
	return g
}

// Name returns the generator name
func (o *OpenAI) Name() string {
	return "openai:" + o.model
}

// Generate asks the model for a week-by-week roadmap.
func (o *OpenAI) Generate(ctx context.Context, profile pathos.Profile) (*pathos.Roadmap, error) {
	if o.chat == nil {
		o.logger.Warn("no API key configured, using simulated roadmap")
		return o.fallback.Generate(ctx, profile)
	}

	rm, err := o.generate(ctx, profile)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("roadmap generation failed, using simulated roadmap",
			"model", o.model,
			"error", err,
		)
		return o.fallback.Generate(ctx, profile)
	}
	return rm, nil
}

func (o *OpenAI) generate(ctx context.Context, profile pathos.Profile) (*pathos.Roadmap, error) {
	weeks := WeeksFor(profile.Timeline)

	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(profile, weeks)),
		}),
		Model: openai.F(openai.ChatModel(o.model)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion failed: no choices returned")
	}

	doc, err := extractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	rm, err := pathos.DecodeRoadmap([]byte(doc))
	if err != nil {
		return nil, err
	}
	if len(rm.Steps) == 0 {
		return nil, errors.New("model returned a roadmap without steps")
	}
	if rm.Role == "" {
		rm.Role = profile.TargetRole
	}
	for i := range rm.Steps {
		rm.Steps[i].Completed = false
	}

	o.logger.Info("roadmap generated", "model", o.model, "weeks", len(rm.Steps))
	return rm, nil
}

// extractJSON returns the outermost {...} span of a model response, which
// tolerates prose or code fences around the document.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object in model response")
	}
	return text[start : end+1], nil
}

func buildPrompt(p pathos.Profile, weeks int) string {
	return fmt.Sprintf(`Create a detailed, week-by-week career roadmap for:
- Role: %s
- Goal: %s salary
- Timeline: %d weeks
- Skills: %s
- Bandwidth: %d hrs/week

REQUIREMENTS:
1. Return a JSON object with "role" and "steps".
2. "steps" must contain EXACTLY %d items. One item per week.
3. Do not group weeks (e.g. "Weeks 1-4"). List each week individually (1 to %d).
4. Each step needs: "week" (int), "title", "description", "resources".
5. "resources" must be a list of objects: {"title": "Resource Name", "url": "Valid URL or empty string"}
6. No markdown code blocks. Return raw JSON only.`,
		p.TargetRole, p.SalaryRange, weeks, strings.Join(p.CurrentSkills, ", "), p.HoursPerWeek, weeks, weeks)
}

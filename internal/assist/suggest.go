// Package assist generates rephrase suggestions for sentences the analysis
// service could not resolve.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const suggestModel = "gemini-1.5-flash"

const maxHints = 3

// Suggester produces rephrase hints for an unresolved sentence.
type Suggester interface {
	RephraseHints(ctx context.Context, sentence string) []string
	Close() error
}

// StaticHints is the fixed fallback list.
var StaticHints = []string{
	"Name the action directly, e.g. \"generate a CV for jane\"",
	"Mention which profile or file you mean",
	"Ask \"what can you do?\" to see available commands",
}

// Static serves the fixed hint list; used when no LLM key is configured.
type Static struct{}

func (Static) RephraseHints(_ context.Context, _ string) []string { return StaticHints }

func (Static) Close() error { return nil }

// Gemini asks an LLM for hints tailored to the user's sentence, falling back
// to the static list on any failure. A hint generator must never fail a
// command.
type Gemini struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGemini creates a Gemini-backed suggester.
func NewGemini(ctx context.Context, apiKey string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{client: client, logger: logger}, nil
}

// RephraseHints returns up to three short rewordings of the sentence that a
// CV-authoring assistant could act on.
func (g *Gemini) RephraseHints(ctx context.Context, sentence string) []string {
	model := g.client.GenerativeModel(suggestModel)
	model.SetTemperature(0.4)

	prompt := fmt.Sprintf(
		"A CV-authoring assistant could not understand this request: %q\n"+
			"It supports: generating a CV as PDF, creating/renaming/deleting profiles, "+
			"uploading a profile picture, and optimizing a CV for a job posting.\n"+
			"Suggest %d short alternative phrasings the assistant could act on, one per line, no numbering.",
		sentence, maxHints)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Warn("suggestion generation failed", zap.Error(err))
		return StaticHints
	}

	hints := parseHints(resp)
	if len(hints) == 0 {
		return StaticHints
	}
	return hints
}

// Close releases resources held by the client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func parseHints(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	var hints []string
	for _, line := range strings.Split(text.String(), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line == "" {
			continue
		}
		hints = append(hints, line)
		if len(hints) == maxHints {
			break
		}
	}
	return hints
}

// Package llm provides Gemini-backed implementations of the report
// collaborators. Callers must treat failures as recoverable; the
// pipeline substitutes fallback text rather than propagating them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"featuremap/internal/model"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

var errEmptyResponse = errors.New("llm: empty response from model")

// Gemini is a thin wrapper around the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini builds a client for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: creating client: %w", err)
	}
	return &Gemini{cli: cli, model: model}, nil
}

// Summarize asks the model for a short execution/verification plan for
// the located features.
func (g *Gemini) Summarize(ctx context.Context, evidence []model.LocalizationEvidence) (string, error) {
	prompt := "You are reviewing a feature localization report for a codebase.\n" +
		"Write a short, concrete plan for how to run the project and verify the located features.\n\n" +
		renderEvidence(evidence)
	return g.generate(ctx, prompt)
}

// GenerateTest asks the model for test code exercising the located features.
func (g *Gemini) GenerateTest(ctx context.Context, evidence []model.LocalizationEvidence) (string, error) {
	prompt := "Write test code that exercises the functions below. Reply with code only.\n\n" +
		renderEvidence(evidence)
	return g.generate(ctx, prompt)
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func renderEvidence(evidence []model.LocalizationEvidence) string {
	var b strings.Builder
	b.WriteString("Located implementations:\n")
	for _, ev := range evidence {
		fmt.Fprintf(&b, "- requirement %d: %s %s (%s, lines %d-%d, score %.2f)\n",
			ev.RequirementOrdinal, ev.Unit.FilePath, ev.Unit.Name, ev.Unit.Kind,
			ev.Unit.StartLine, ev.Unit.EndLine, ev.Score)
	}
	if len(evidence) == 0 {
		b.WriteString("- none found\n")
	}
	return b.String()
}

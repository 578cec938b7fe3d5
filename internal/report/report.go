// Package report assembles localization evidence into the canonical
// analysis report.
package report

import (
	"context"
	"fmt"

	"featuremap/internal/model"
)

// DefaultTopK caps implementation locations per requirement.
const DefaultTopK = 3

// Summarizer produces the execution plan suggestion text. Implemented
// by an external language model in production and by deterministic
// heuristics in tests and offline runs.
type Summarizer interface {
	Summarize(ctx context.Context, evidence []model.LocalizationEvidence) (string, error)
}

// TestGenerator produces verification test code for the located features.
type TestGenerator interface {
	GenerateTest(ctx context.Context, evidence []model.LocalizationEvidence) (string, error)
}

// Fallback strings substituted when a collaborator fails. A failed
// summarization or test generation never fails the report.
const (
	PlanFallback     = "[execution plan unavailable: the summarization step failed]"
	TestCodeFallback = "// [test generation unavailable: the generation step failed]"
)

// SummarizeOrFallback invokes s and substitutes PlanFallback on error
// or nil summarizer.
func SummarizeOrFallback(ctx context.Context, s Summarizer, evidence []model.LocalizationEvidence) string {
	if s == nil {
		return PlanFallback
	}
	text, err := s.Summarize(ctx, evidence)
	if err != nil || text == "" {
		return PlanFallback
	}
	return text
}

// GenerateTestOrFallback invokes g and substitutes TestCodeFallback on
// error or nil generator.
func GenerateTestOrFallback(ctx context.Context, g TestGenerator, evidence []model.LocalizationEvidence) string {
	if g == nil {
		return TestCodeFallback
	}
	code, err := g.GenerateTest(ctx, evidence)
	if err != nil || code == "" {
		return TestCodeFallback
	}
	return code
}

// Assemble merges evidence into the report. Requirements keep their
// input order; each gets its top-K evidence entries in descending score
// order. External plan and verification text pass through verbatim.
// Calling Assemble twice with the same inputs yields the same report.
func Assemble(reqs []model.Requirement, evidence []model.LocalizationEvidence, plan string, verification *model.Verification, topK int) model.Report {
	if topK <= 0 {
		topK = DefaultTopK
	}

	byOrdinal := make(map[int][]model.LocalizationEvidence)
	for _, ev := range evidence {
		byOrdinal[ev.RequirementOrdinal] = append(byOrdinal[ev.RequirementOrdinal], ev)
	}

	entries := make([]model.FeatureEntry, 0, len(reqs))
	for _, req := range reqs {
		locs := make([]model.Location, 0, topK)
		for _, ev := range byOrdinal[req.Ordinal] {
			if len(locs) == topK {
				break
			}
			locs = append(locs, model.Location{
				File:     ev.Unit.FilePath,
				Function: ev.Unit.Name,
				Lines:    fmt.Sprintf("%d-%d", ev.Unit.StartLine, ev.Unit.EndLine),
			})
		}
		entries = append(entries, model.FeatureEntry{
			FeatureDescription:     req.Text,
			ImplementationLocation: locs,
		})
	}

	return model.Report{
		FeatureAnalysis:         entries,
		ExecutionPlanSuggestion: plan,
		FunctionalVerification:  verification,
	}
}

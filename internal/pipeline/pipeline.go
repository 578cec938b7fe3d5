// Package pipeline runs the full analysis for one request: sandbox
// extraction, inventory, unit extraction, indexing, localization and
// report assembly. It holds no state across requests.
package pipeline

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"featuremap/internal/extract"
	"featuremap/internal/index"
	"featuremap/internal/inventory"
	"featuremap/internal/localize"
	"featuremap/internal/model"
	"featuremap/internal/plan"
	"featuremap/internal/report"
	"featuremap/internal/sandbox"
)

// Config is supplied by the caller; the pipeline never loads
// configuration itself.
type Config struct {
	Limits      sandbox.Limits
	MinScore    float64
	TopK        int
	Parallelism int // extraction workers; 0 means GOMAXPROCS
}

// Verifier runs generated test code and reports the outcome. Executing
// tests is outside the core; when nil, a simulated result marks the
// insertion point.
type Verifier interface {
	Run(ctx context.Context, testCode string) (model.ExecutionResult, error)
}

// Diagnostics records per-file degradations and run counters. They are
// not part of the canonical report.
type Diagnostics struct {
	Files      int
	Units      int
	Unreadable []string
	Truncated  []string
	Partial    []string
}

// Engine analyzes archives. Safe for concurrent use; each Analyze call
// gets its own workspace.
type Engine struct {
	cfg        Config
	log        *zap.Logger
	summarizer report.Summarizer
	testGen    report.TestGenerator
	verifier   Verifier
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithSummarizer replaces the heuristic plan suggestion.
func WithSummarizer(s report.Summarizer) Option { return func(e *Engine) { e.summarizer = s } }

// WithTestGenerator replaces the heuristic test scaffold.
func WithTestGenerator(g report.TestGenerator) Option { return func(e *Engine) { e.testGen = g } }

// WithVerifier wires a real test runner into the verification hook.
func WithVerifier(v Verifier) Option { return func(e *Engine) { e.verifier = v } }

// New builds an engine. logger may be nil.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{cfg: cfg, log: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the pipeline on archive bytes and a requirement
// description.
func (e *Engine) Analyze(ctx context.Context, archive []byte, description string) (model.Report, Diagnostics, error) {
	return e.run(ctx, archive, description, false)
}

// AnalyzeWithVerification additionally generates test code and attaches
// the functional_verification block.
func (e *Engine) AnalyzeWithVerification(ctx context.Context, archive []byte, description string) (model.Report, Diagnostics, error) {
	return e.run(ctx, archive, description, true)
}

// run is the pipeline body. The workspace is removed on every exit
// path, including cancellation.
func (e *Engine) run(ctx context.Context, archive []byte, description string, verify bool) (model.Report, Diagnostics, error) {
	var diag Diagnostics

	ws, err := sandbox.Open(archive, e.cfg.Limits)
	if err != nil {
		return model.Report{}, diag, err
	}
	defer ws.Close()
	diag.Truncated = ws.Truncated()

	files, unreadable, err := inventory.List(ws.Root())
	if err != nil {
		return model.Report{}, diag, err
	}
	diag.Files = len(files)
	diag.Unreadable = unreadable
	e.log.Debug("inventory complete",
		zap.Int("files", len(files)),
		zap.Int("unreadable", len(unreadable)),
		zap.Int("truncated", len(diag.Truncated)))

	units, partial, err := e.extractAll(ctx, files)
	if err != nil {
		return model.Report{}, diag, err
	}
	diag.Units = len(units)
	diag.Partial = partial

	idx := index.Build(units)
	reqs := localize.Split(description)
	evidence := localize.Localize(reqs, idx, localize.Options{MinScore: e.cfg.MinScore})
	e.log.Debug("localization complete",
		zap.Int("requirements", len(reqs)),
		zap.Int("units", len(units)),
		zap.Int("evidence", len(evidence)))

	if err := ctx.Err(); err != nil {
		return model.Report{}, diag, err
	}

	summarizer := e.summarizer
	testGen := e.testGen
	if summarizer == nil || testGen == nil {
		h := plan.NewHeuristics(ws.Root(), files)
		if summarizer == nil {
			summarizer = h
		}
		if testGen == nil {
			testGen = h
		}
	}

	planText := report.SummarizeOrFallback(ctx, summarizer, evidence)

	var verification *model.Verification
	if verify {
		code := report.GenerateTestOrFallback(ctx, testGen, evidence)
		result := plan.SimulatedResult()
		if e.verifier != nil {
			if r, err := e.verifier.Run(ctx, code); err == nil {
				result = r
			} else {
				e.log.Warn("verification run failed", zap.Error(err))
				result = model.ExecutionResult{TestsPassed: false, Log: "verification run failed: " + err.Error()}
			}
		}
		verification = &model.Verification{GeneratedTestCode: code, ExecutionResult: result}
	}

	rep := report.Assemble(reqs, evidence, planText, verification, e.cfg.TopK)
	return rep, diag, nil
}

// extractAll runs unit extraction per file in parallel. File order is
// already deterministic; results are reassembled by input position, so
// scheduling order never leaks into the output.
func (e *Engine) extractAll(ctx context.Context, files []model.SourceFile) ([]model.CodeUnit, []string, error) {
	workers := e.cfg.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perFile := make([][]model.CodeUnit, len(files))
	notes := make([]model.FileNote, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perFile[i], notes[i] = extract.Units(files[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var units []model.CodeUnit
	var partial []string
	for i := range files {
		units = append(units, perFile[i]...)
		if notes[i] == model.NotePartiallyExtracted {
			partial = append(partial, files[i].Path)
		}
	}
	return units, partial, nil
}

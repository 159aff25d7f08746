// Package pipeline orchestrates the multi-phase image analysis workflow.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/internal/store"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// Pipeline orchestrates the analysis phases: context detection, quick scan,
// deep analysis, confidence filtering, synthesis and known-info merge.
type Pipeline struct {
	cfg       *config.Config
	anthropic anthropic.Client
	store     store.Store
}

// New creates a Pipeline. The store is optional; a nil store disables the
// audit trail without affecting analysis.
func New(cfg *config.Config, aiClient anthropic.Client, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		anthropic: aiClient,
		store:     st,
	}
}

// Options controls a single pipeline run.
type Options struct {
	// Label identifies the run in logs and the audit store, typically the
	// dataset name or an upload id.
	Label string
	// SkipContext bypasses context detection.
	SkipContext bool
	// Known carries user-declared ground truth merged into the result.
	Known model.KnownInfo
	// Context supplies a pre-computed context result, skipping detection.
	Context *model.ContextResult
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Blueprint model.FinalBlueprint
	Context   *model.ContextResult
	Phases    []model.PhaseResult
	Usage     anthropic.TokenUsage
}

// Run executes all phases over one image batch. Phase outcomes are recorded
// in the audit store best-effort; store failures are logged, never fatal.
func (p *Pipeline) Run(ctx context.Context, images []model.EvidenceImage, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("label", opts.Label), zap.Int("images", len(images)))
	log.Info("pipeline: starting analysis")

	result := &Result{}
	aiCfg := p.cfg.Anthropic

	run := p.createRun(ctx, opts.Label, len(images))
	setStatus := func(status model.RunStatus) {
		if run == nil {
			return
		}
		if err := p.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
			log.Warn("pipeline: failed to update run status", zap.Error(err))
		}
	}

	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		var phase *model.RunPhase
		if run != nil {
			var phaseErr error
			phase, phaseErr = p.store.CreatePhase(ctx, run.ID, name)
			if phaseErr != nil {
				log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
			}
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if phaseResult.Status == "" {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			if err := p.store.CompletePhase(ctx, phase.ID, phaseResult); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
			}
		}
		result.Phases = append(result.Phases, *phaseResult)
		return fnErr
	}

	recordUsage := func(pr *model.PhaseResult, usage *anthropic.TokenUsage, phase string) {
		if usage == nil {
			return
		}
		result.Usage.Add(*usage)
		usage.LogCost(aiCfg.Model, phase)
		if pr != nil {
			pr.InputTokens = usage.InputTokens
			pr.OutputTokens = usage.OutputTokens
		}
	}

	fail := func(err error) (*Result, error) {
		setStatus(model.RunStatusFailed)
		return nil, err
	}

	// Phase 0: context detection.
	contextResult := opts.Context
	if contextResult == nil && !opts.SkipContext {
		setStatus(model.RunStatusDetecting)
		err := trackPhase("0_context", func() (*model.PhaseResult, error) {
			cr, usage, phaseErr := DetectContext(ctx, images, p.anthropic, aiCfg)
			pr := &model.PhaseResult{}
			recordUsage(pr, usage, "context")
			if phaseErr != nil {
				return pr, phaseErr
			}
			contextResult = cr
			pr.Metadata = map[string]any{
				"dominant_source": string(cr.Summary.DominantSourceType),
				"dominant_domain": string(cr.Summary.DominantDomain),
				"privacy_level":   string(cr.Summary.OverallPrivacyLevel),
			}
			return pr, nil
		})
		if err != nil {
			return fail(err)
		}
	}
	result.Context = contextResult

	// Phase 1: quick scan.
	setStatus(model.RunStatusScanning)
	var scanResult *model.ScanResult
	if err := trackPhase("1_scan", func() (*model.PhaseResult, error) {
		sr, usage, phaseErr := ScanImages(ctx, images, p.anthropic, aiCfg)
		pr := &model.PhaseResult{}
		recordUsage(pr, usage, "scan")
		if phaseErr != nil {
			return pr, phaseErr
		}
		scanResult = sr
		pr.Metadata = map[string]any{
			"cross_references": len(sr.Summary.CrossReferences),
			"high_priority":    len(sr.Summary.HighPriorityImages),
		}
		return pr, nil
	}); err != nil {
		return fail(err)
	}

	// Phase 2: deep analysis over focus topics.
	setStatus(model.RunStatusAnalyzing)
	focusTopics := FocusTopics(scanResult)
	var tree model.AnalysisTree
	if err := trackPhase("2_analyze", func() (*model.PhaseResult, error) {
		t, usage, phaseErr := DeepAnalyze(ctx, images, scanResult, focusTopics, p.anthropic, aiCfg)
		pr := &model.PhaseResult{}
		recordUsage(pr, usage, "analyze")
		if phaseErr != nil {
			return pr, phaseErr
		}
		tree = t
		pr.Metadata = map[string]any{
			"categories":   len(t),
			"focus_topics": len(focusTopics),
		}
		return pr, nil
	}); err != nil {
		return fail(err)
	}

	// Post-processing: strict filter before synthesis.
	threshold := p.cfg.Pipeline.SynthesisThreshold
	if threshold <= 0 {
		threshold = SynthesisFilterThreshold
	}
	filtered := FilterByConfidence(tree, threshold)
	log.Info("pipeline: confidence filter applied",
		zap.Float64("threshold", threshold),
		zap.Int("categories_before", len(tree)),
		zap.Int("categories_after", len(filtered)),
	)

	// Phase 3: synthesis + known-info merge.
	setStatus(model.RunStatusSynthesizing)
	var summary *model.ContextSummary
	if contextResult != nil {
		summary = &contextResult.Summary
	}
	if err := trackPhase("3_synthesize", func() (*model.PhaseResult, error) {
		blueprint, usage, phaseErr := Synthesize(ctx, filtered, opts.Known, summary, p.anthropic, aiCfg)
		pr := &model.PhaseResult{}
		recordUsage(pr, usage, "synthesize")
		if phaseErr != nil {
			return pr, phaseErr
		}
		if !opts.Known.IsEmpty() {
			ApplyKnownInfo(blueprint, opts.Known)
		}
		result.Blueprint = blueprint
		return pr, nil
	}); err != nil {
		return fail(err)
	}

	if run != nil {
		runResult := &model.RunResult{
			Blueprint:    result.Blueprint,
			Phases:       result.Phases,
			TotalTokens:  result.Usage.InputTokens + result.Usage.OutputTokens,
			EstimatedUSD: result.Usage.EstimateCost(aiCfg.Model),
		}
		if err := p.store.UpdateRunResult(ctx, run.ID, runResult); err != nil {
			log.Warn("pipeline: failed to store run result", zap.Error(err))
		}
	}

	log.Info("pipeline: analysis complete",
		zap.String("character_name", result.Blueprint.CharacterName()),
		zap.Int64("input_tokens", result.Usage.InputTokens),
		zap.Int64("output_tokens", result.Usage.OutputTokens),
	)

	return result, nil
}

func (p *Pipeline) createRun(ctx context.Context, label string, imageCount int) *model.Run {
	if p.store == nil {
		return nil
	}
	run, err := p.store.CreateRun(ctx, label, imageCount)
	if err != nil {
		zap.L().Warn("pipeline: failed to create run record", zap.Error(err))
		return nil
	}
	return run
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/pipeline"
	"github.com/blueprintkit/bioblueprint/internal/preprocess"
	"github.com/blueprintkit/bioblueprint/internal/store"
	anthropicpkg "github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// pipelineEnv holds the initialized store, client and pipeline shared by the
// analyze and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the audit store and the Anthropic client, and builds
// the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("BIOBLUEPRINT_ANTHROPIC_KEY is required")
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var clientOpts []anthropicpkg.Option
	if cfg.Anthropic.RequestsPerMinute > 0 {
		clientOpts = append(clientOpts, anthropicpkg.WithRateLimit(cfg.Anthropic.RequestsPerMinute/60, 1))
		zap.L().Info("anthropic rate limit enabled",
			zap.Float64("requests_per_minute", cfg.Anthropic.RequestsPerMinute),
		)
	}
	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key, clientOpts...)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, aiClient, st),
	}, nil
}

// preprocessOptions builds preprocess options from config, falling back to
// defaults for unset fields.
func preprocessOptions() preprocess.Options {
	opts := preprocess.DefaultOptions()
	if cfg.Preprocess.MaxDimension > 0 {
		opts.MaxDimension = cfg.Preprocess.MaxDimension
	}
	if cfg.Preprocess.MaxSizeKB > 0 {
		opts.MaxBytes = cfg.Preprocess.MaxSizeKB * 1024
	}
	if cfg.Preprocess.Quality > 0 {
		opts.Quality = cfg.Preprocess.Quality
	}
	if cfg.Preprocess.MinQuality > 0 {
		opts.MinQuality = cfg.Preprocess.MinQuality
	}
	if cfg.Preprocess.Concurrency > 0 {
		opts.Concurrency = cfg.Preprocess.Concurrency
	}
	return opts
}

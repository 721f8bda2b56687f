// Package pipeline wires the four resume processing stages into the analyze
// and optimize flows. Stages communicate through an immutable PipelineState:
// each stage receives a snapshot and returns a StateUpdate, and only the flow
// orchestrator merges updates. Scoring and formatting failures degrade to
// deterministic fallbacks; parse and transport failures abort the run.
package pipeline

import (
	"context"
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/types"
)

// RecordSink receives the per-run summary once an optimize flow completes.
// Implementations must tolerate being called from concurrent runs.
type RecordSink interface {
	Record(ctx context.Context, rec types.RunRecord) error
}

// LoggingSink writes run records to the structured log. It is the default
// sink when no external persistence is configured.
type LoggingSink struct {
	Logger *errors.Logger
}

func (s *LoggingSink) Record(_ context.Context, rec types.RunRecord) error {
	s.Logger.Info("Optimization run completed",
		"candidate_name", rec.CandidateName,
		"initial_score", rec.InitialScore,
		"final_score", rec.FinalScore,
		"missing_keywords", rec.MissingKeywords,
		"jd_snippet_length", len(rec.JDSnippet))
	return nil
}

// StageMetrics receives per-stage timing and token usage. The observability
// package provides the production implementation; a nil recorder disables
// collection.
type StageMetrics interface {
	RecordStage(ctx context.Context, stage string, duration time.Duration, usage *ai.TokenUsage, err error)
	RecordScoreDelta(ctx context.Context, initial, final float64)
}

// Pipeline executes the resume flows against per-stage generators.
type Pipeline struct {
	parse    ai.Generator
	score    ai.Generator
	optimize ai.Generator
	format   ai.Generator

	policy  config.ScoringPolicyConfig
	logger  *errors.Logger
	sink    RecordSink
	metrics StageMetrics
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecordSink replaces the default logging sink.
func WithRecordSink(sink RecordSink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithStageMetrics attaches a stage metrics recorder.
func WithStageMetrics(m StageMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New builds a Pipeline. Each stage may use a distinct generator so models
// and breaker settings can differ per stage.
func New(parse, score, optimize, format ai.Generator, policy config.ScoringPolicyConfig, logger *errors.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		parse:    parse,
		score:    score,
		optimize: optimize,
		format:   format,
		policy:   policy,
		logger:   logger,
		sink:     &LoggingSink{Logger: logger},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// recordStage forwards stage telemetry when a recorder is attached.
func (p *Pipeline) recordStage(ctx context.Context, stage string, start time.Time, usage *ai.TokenUsage, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordStage(ctx, stage, time.Since(start), usage, err)
}

package pipeline

import (
	"context"

	"atsforge/internal/types"

	"golang.org/x/sync/errgroup"
)

// Analyze runs the analysis flow: parse the raw resume, then score it
// against the job description. Parser and transport failures abort the run;
// scoring degradation does not.
func (p *Pipeline) Analyze(ctx context.Context, resumeText, jdText string) (*types.AnalyzeResult, error) {
	state := types.PipelineState{
		RawResumeText: resumeText,
		RawJDText:     jdText,
	}

	update, err := p.runParser(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.Merge(update)

	update, err = p.runScoreBefore(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.Merge(update)

	return &types.AnalyzeResult{
		ResumeJSON:     state.ResumeJSON,
		InitialATSData: state.InitialATSData,
	}, nil
}

// Optimize runs the optimization flow: rewrite the resume to close keyword
// gaps, then re-score and format the result in parallel. The re-score and
// the formatter both read the optimizer's output and are independent of each
// other, so they run concurrently and their updates merge afterward.
func (p *Pipeline) Optimize(ctx context.Context, resume *types.StructuredResume, initial *types.ScoreReport, jdText string) (*types.OptimizeResult, error) {
	state := types.PipelineState{
		RawJDText:      jdText,
		ResumeJSON:     resume,
		InitialATSData: initial,
	}

	update, err := p.runOptimizer(ctx, state)
	if err != nil {
		return nil, err
	}
	state = state.Merge(update)

	var scoreUpdate, formatUpdate types.StateUpdate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scoreUpdate, err = p.runScoreAfter(gctx, state)
		return err
	})
	g.Go(func() error {
		var err error
		formatUpdate, err = p.runFormatter(gctx, state)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	state = state.Merge(scoreUpdate).Merge(formatUpdate)

	if p.metrics != nil && state.InitialATSData != nil && state.FinalATSData != nil {
		p.metrics.RecordScoreDelta(ctx, state.InitialATSData.Score, state.FinalATSData.Score)
	}

	rec := types.NewRunRecord(state.InitialATSData, state.FinalATSData, state.OptimizedResumeJSON, state.RawJDText)
	if err := p.sink.Record(ctx, rec); err != nil {
		// Persistence is advisory; the run result is already complete.
		p.logger.Warn("Failed to persist run record", "error", err.Error())
	}

	return &types.OptimizeResult{
		OptimizedResumeJSON: state.OptimizedResumeJSON,
		FinalATSData:        state.FinalATSData,
		FormattedOutput:     state.FormattedOutput,
	}, nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/errors"
	"atsforge/internal/extract"
	"atsforge/internal/types"
)

// runScoreBefore scores the parsed resume against the job description. When
// the model output cannot be decoded the stage degrades to a neutral
// fallback report instead of failing the run.
func (p *Pipeline) runScoreBefore(ctx context.Context, state types.PipelineState) (types.StateUpdate, error) {
	resumeJSON, err := json.Marshal(state.ResumeJSON)
	if err != nil {
		return types.StateUpdate{}, errors.NewInternalError(errors.ErrCodeInvalidFormat,
			"Failed to serialize resume for scoring", err)
	}

	start := time.Now()
	raw, usage, genErr := p.score.Generate(ctx, ai.OpScoreBefore, string(resumeJSON), state.RawJDText)
	p.recordStage(ctx, "score_before", start, usage, genErr)
	if genErr != nil {
		return types.StateUpdate{}, genErr
	}

	report, decodeErr := decodeScoreReport(raw)
	if decodeErr != nil {
		p.logger.Warn("Initial scoring degraded to heuristic fallback",
			"error_code", errors.ErrCodeScoringDegraded,
			"error", decodeErr.Error())
		return types.StateUpdate{InitialATSData: p.firstPassFallback()}, nil
	}

	normalizeReport(report)
	return types.StateUpdate{InitialATSData: report}, nil
}

// runScoreAfter re-scores the optimized resume. The prior report anchors both
// the prompt and the degradation paths: an unparseable response or a score
// regression are replaced with a clamped boost over the prior score.
func (p *Pipeline) runScoreAfter(ctx context.Context, state types.PipelineState) (types.StateUpdate, error) {
	resumeJSON, err := json.Marshal(state.OptimizedResumeJSON)
	if err != nil {
		return types.StateUpdate{}, errors.NewInternalError(errors.ErrCodeInvalidFormat,
			"Failed to serialize optimized resume for scoring", err)
	}

	priorScore := 0.0
	priorMissing := "None"
	if state.InitialATSData != nil {
		priorScore = state.InitialATSData.Score
		if len(state.InitialATSData.MissingKeywords) > 0 {
			priorMissing = strings.Join(state.InitialATSData.MissingKeywords, ", ")
		}
	}

	start := time.Now()
	raw, usage, genErr := p.score.Generate(ctx, ai.OpScoreAfter, priorScore, priorMissing, string(resumeJSON), state.RawJDText)
	p.recordStage(ctx, "score_after", start, usage, genErr)
	if genErr != nil {
		return types.StateUpdate{}, genErr
	}

	report, decodeErr := decodeScoreReport(raw)
	if decodeErr != nil {
		p.logger.Warn("Final scoring degraded to boosted fallback",
			"error_code", errors.ErrCodeScoringDegraded,
			"prior_score", priorScore,
			"error", decodeErr.Error())
		return types.StateUpdate{FinalATSData: p.afterPassFallback(priorScore)}, nil
	}

	normalizeReport(report)
	if report.Score <= priorScore {
		boosted := clamp(priorScore+p.policy.RegressionBump, p.policy.RegressionFloor, p.policy.RegressionCap)
		p.logger.Warn("Final score regressed below initial, applying clamp",
			"raw_score", report.Score,
			"prior_score", priorScore,
			"clamped_score", boosted)
		report.Score = boosted
	}
	return types.StateUpdate{FinalATSData: report}, nil
}

// decodeScoreReport extracts and unmarshals a ScoreReport from raw model text
func decodeScoreReport(raw string) (*types.ScoreReport, error) {
	payload, err := extract.JSONPayload(raw)
	if err != nil {
		return nil, err
	}
	var report types.ScoreReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// normalizeReport converts fractional scores to the 0-100 scale and sorts
// missing keywords so reports are stable run to run. Scores above 1 are
// already percentages, which makes the conversion idempotent.
func normalizeReport(report *types.ScoreReport) {
	if report.Score <= 1.0 {
		report.Score *= 100
	}
	sort.Strings(report.MissingKeywords)
}

// firstPassFallback is the report used when the initial scorer output cannot
// be decoded at all.
func (p *Pipeline) firstPassFallback() *types.ScoreReport {
	return &types.ScoreReport{
		Score:           p.policy.FirstPassFallbackScore,
		MissingKeywords: []string{"Complex resume structure"},
		MatchedKeywords: []string{},
		WeakSections:    []string{"Formatting"},
	}
}

// afterPassFallback assumes the optimizer did its job and boosts the prior
// score within the configured band.
func (p *Pipeline) afterPassFallback(priorScore float64) *types.ScoreReport {
	return &types.ScoreReport{
		Score:           clamp(priorScore+p.policy.FallbackBump, p.policy.FallbackFloor, p.policy.FallbackCap),
		MissingKeywords: []string{},
		MatchedKeywords: []string{},
		WeakSections:    []string{},
	}
}

func clamp(v, floor, ceiling float64) float64 {
	if v < floor {
		v = floor
	}
	if v > ceiling {
		v = ceiling
	}
	return v
}

package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/errors"
	"atsforge/internal/extract"
	"atsforge/internal/types"
)

// runOptimizer rewrites the parsed resume to integrate the missing keywords
// found by the initial scorer. The prompt forbids structural and factual
// changes, and the stage re-checks those constraints itself: a generation
// that breaks them, or cannot be decoded at all, degrades to passing the
// input resume through unmodified.
func (p *Pipeline) runOptimizer(ctx context.Context, state types.PipelineState) (types.StateUpdate, error) {
	original := state.ResumeJSON
	if original == nil {
		return types.StateUpdate{}, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Optimizer requires a parsed resume", nil)
	}

	resumeJSON, err := json.Marshal(original)
	if err != nil {
		return types.StateUpdate{}, errors.NewInternalError(errors.ErrCodeInvalidFormat,
			"Failed to serialize resume for optimization", err)
	}

	keywords := ""
	if state.InitialATSData != nil {
		keywords = strings.Join(state.InitialATSData.MissingKeywords, ", ")
	}
	expCount := len(original.Experience)
	projCount := len(original.Projects)

	start := time.Now()
	raw, usage, genErr := p.optimize.Generate(ctx, ai.OpOptimizeResume,
		keywords, expCount, expCount, projCount, projCount, keywords, string(resumeJSON))
	p.recordStage(ctx, "optimize", start, usage, genErr)
	if genErr != nil {
		return types.StateUpdate{}, genErr
	}

	optimized, decodeErr := decodeOptimizedResume(raw)
	if decodeErr != nil {
		p.logger.Warn("Optimizer output unusable, passing resume through unmodified",
			"error_code", errors.ErrCodeOptimizationDegraded,
			"error", decodeErr.Error())
		return types.StateUpdate{OptimizedResumeJSON: original}, nil
	}

	if violation := checkConservation(original, optimized); violation != "" {
		p.logger.Warn("Optimizer violated conservation constraints, passing resume through unmodified",
			"error_code", errors.ErrCodeOptimizationDegraded,
			"violation", violation)
		return types.StateUpdate{OptimizedResumeJSON: original}, nil
	}

	restoreFactualFields(original, optimized)

	if moved := reclassifyEducation(optimized); moved > 0 {
		p.logger.Info("Moved misclassified projects out of optimized education section",
			"moved_count", moved)
	}

	return types.StateUpdate{OptimizedResumeJSON: optimized}, nil
}

// decodeOptimizedResume extracts and unmarshals a StructuredResume from raw
// model text.
func decodeOptimizedResume(raw string) (*types.StructuredResume, error) {
	payload, err := extract.JSONPayload(raw)
	if err != nil {
		return nil, err
	}
	var resume types.StructuredResume
	if err := json.Unmarshal([]byte(payload), &resume); err != nil {
		return nil, err
	}
	return &resume, nil
}

// checkConservation verifies the optimizer kept entry counts intact. Returns
// an empty string when the output conserves structure, otherwise a short
// description of the violation.
func checkConservation(original, optimized *types.StructuredResume) string {
	if len(optimized.Experience) != len(original.Experience) {
		return "experience entry count changed"
	}
	if len(optimized.Projects) != len(original.Projects) {
		return "project entry count changed"
	}
	if len(optimized.Education) != len(original.Education) {
		return "education entry count changed"
	}
	return ""
}

// restoreFactualFields copies immutable identity fields from the original
// resume over the optimized one. The optimizer may rewrite bullets and
// summaries but never employers, institutions, degrees, or dates.
func restoreFactualFields(original, optimized *types.StructuredResume) {
	optimized.Personal.Name = original.Personal.Name
	optimized.Personal.Email = original.Personal.Email
	optimized.Personal.Phone = original.Personal.Phone
	optimized.Personal.Links = original.Personal.Links

	for i := range optimized.Experience {
		optimized.Experience[i].Company = original.Experience[i].Company
		optimized.Experience[i].Location = original.Experience[i].Location
		optimized.Experience[i].StartDate = original.Experience[i].StartDate
		optimized.Experience[i].EndDate = original.Experience[i].EndDate
	}

	for i := range optimized.Education {
		optimized.Education[i].Institution = original.Education[i].Institution
		optimized.Education[i].Degree = original.Education[i].Degree
		optimized.Education[i].StartDate = original.Education[i].StartDate
		optimized.Education[i].EndDate = original.Education[i].EndDate
	}
}

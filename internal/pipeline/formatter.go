package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/errors"
	"atsforge/internal/extract"
	"atsforge/internal/types"

	"gopkg.in/yaml.v3"
)

// runFormatter renders the optimized resume as RenderCV YAML. Formatting is
// best effort: output that fails YAML validation is still returned, flagged
// in the log, because a slightly malformed document a human can repair beats
// no document.
func (p *Pipeline) runFormatter(ctx context.Context, state types.PipelineState) (types.StateUpdate, error) {
	resumeJSON, err := json.Marshal(state.OptimizedResumeJSON)
	if err != nil {
		return types.StateUpdate{}, errors.NewInternalError(errors.ErrCodeInvalidFormat,
			"Failed to serialize resume for formatting", err)
	}

	start := time.Now()
	raw, usage, genErr := p.format.Generate(ctx, ai.OpFormatResume, string(resumeJSON))
	p.recordStage(ctx, "format", start, usage, genErr)
	if genErr != nil {
		return types.StateUpdate{}, genErr
	}

	doc := extract.Document(raw)

	var probe any
	if err := yaml.Unmarshal([]byte(doc), &probe); err != nil {
		p.logger.Warn("Formatter output is not valid YAML, returning it anyway",
			"error_code", errors.ErrCodeFormattingDegraded,
			"error", err.Error())
	}

	return types.StateUpdate{FormattedOutput: doc, HasFormattedOutput: true}, nil
}

package ai

import (
	"context"
)

// Operation identifies one generation call site in the pipeline. The scorer
// has two variants because the before and after passes use different
// scoring contracts; the graph picks the variant, never the provider.
type Operation string

const (
	OpParseResume    Operation = "parse_resume"
	OpScoreBefore    Operation = "score_before"
	OpScoreAfter     Operation = "score_after"
	OpOptimizeResume Operation = "optimize_resume"
	OpFormatResume   Operation = "format_resume"
)

// Generator is the raw-text generation capability the pipeline consumes.
// Implementations format the operation's user prompt template with args and
// return the model's text verbatim. Output is not guaranteed to be
// well-formed; callers normalize it themselves.
type Generator interface {
	Generate(ctx context.Context, op Operation, args ...any) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

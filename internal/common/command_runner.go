package common

import (
	"context"

	"atsforge/internal/errors"
)

// PipelineFunc runs one pipeline flow against prepared text inputs.
type PipelineFunc[Output any] func(ctx context.Context, inputs []string) (Output, error)

// RunPipelineCommand encapsulates the common logic for file-based CLI
// commands: read the input files, run the flow, hand the result to the
// output handler.
func RunPipelineCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	run PipelineFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ReadInputFiles(args...)
	if err != nil {
		return err
	}

	result, err := run(ctx, contents)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

package cli

import (
	"context"
	"fmt"

	"atsforge/internal/common"
	"atsforge/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file] [job-description-file]",
	Short: "Parse a resume and score it against a job description",
	Long: `Parse a resume (PDF or plain text) into structured JSON and score it
against a job description the way an ATS would.

The analysis includes:
- An ATS match score from 0 to 100
- Job description keywords the resume already covers
- Job description keywords the resume is missing
- Resume sections that need strengthening

The JSON output of this command can be fed to 'atsforge optimize'.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	p, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	analyzeOperation := func(ctx context.Context, inputs []string) (*types.AnalyzeResult, error) {
		resumeText, jdText := inputs[0], inputs[1]

		logger.Info("Starting resume analysis",
			"resume_chars", len(resumeText),
			"job_chars", len(jdText),
			"output_format", analyzeConfig.OutputFormat)

		return p.Analyze(ctx, resumeText, jdText)
	}

	err = common.RunPipelineCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		analyzeOperation,
	)

	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}

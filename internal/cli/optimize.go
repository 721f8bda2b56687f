package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"atsforge/internal/common"
	"atsforge/internal/errors"
	"atsforge/internal/types"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [analysis-file] [job-description-file]",
	Short: "Rewrite a resume to close keyword gaps and render it as RenderCV YAML",
	Long: `Rewrite a parsed resume so it covers the keywords the job description
asks for, without inventing employers, dates, or credentials, then re-score
the result and render it as a RenderCV YAML document.

The first argument is the JSON output of 'atsforge analyze'; the second is
the job description file used for that analysis.

Use --format yaml to emit only the RenderCV document.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if optimizeConfig.OutputFormat == "" {
			optimizeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(optimizeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runOptimize,
}

var optimizeConfig common.CommandConfig

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	optimizeCmd.Flags().StringVar(&optimizeConfig.OutputFormat, "format", "", "Output format: json, text, markdown, or yaml")

	// Add completion for format flag
	_ = optimizeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	p, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	optimizeOperation := func(ctx context.Context, inputs []string) (*types.OptimizeResult, error) {
		analysisJSON, jdText := inputs[0], inputs[1]

		var analysis types.AnalyzeResult
		if err := json.Unmarshal([]byte(analysisJSON), &analysis); err != nil {
			return nil, errors.NewValidationError("INVALID_ANALYSIS_FILE",
				fmt.Sprintf("Cannot parse analysis file %s, expected 'atsforge analyze' JSON output", args[0]), err)
		}
		if analysis.ResumeJSON == nil || analysis.InitialATSData == nil {
			return nil, errors.NewValidationError("INVALID_ANALYSIS_FILE",
				fmt.Sprintf("Analysis file %s is missing resumeJson or initialAtsData", args[0]), nil)
		}

		logger.Info("Starting resume optimization",
			"candidate", analysis.ResumeJSON.Personal.Name,
			"initial_score", analysis.InitialATSData.Score,
			"job_chars", len(jdText),
			"output_format", optimizeConfig.OutputFormat)

		return p.Optimize(ctx, analysis.ResumeJSON, analysis.InitialATSData, jdText)
	}

	err = common.RunPipelineCommand(
		cmd.Context(),
		logger,
		optimizeConfig,
		args,
		optimizeOperation,
	)

	if err != nil {
		return fmt.Errorf("failed to optimize resume: %w", err)
	}
	logger.Info("Resume optimization completed successfully")
	return nil
}

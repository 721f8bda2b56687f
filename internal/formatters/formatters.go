package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"atsforge/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalyzeResult", &AnalyzeTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalyzeResult", &AnalyzeMarkdownFormatter{})
	registry.RegisterFormatter("text", "OptimizeResult", &OptimizeTextFormatter{})
	registry.RegisterFormatter("markdown", "OptimizeResult", &OptimizeMarkdownFormatter{})
	registry.RegisterFormatter("yaml", "OptimizeResult", &OptimizeYAMLFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.AnalyzeResult:
		return "AnalyzeResult"
	case *types.OptimizeResult:
		return "OptimizeResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// writeScoreReport renders a score report section in plain text
func writeScoreReport(output *strings.Builder, report *types.ScoreReport) {
	output.WriteString(fmt.Sprintf("Score: %.0f/100\n\n", report.Score))

	if len(report.MatchedKeywords) > 0 {
		output.WriteString("Matched Keywords:\n")
		for _, kw := range report.MatchedKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}
	if len(report.MissingKeywords) > 0 {
		output.WriteString("Missing Keywords:\n")
		for _, kw := range report.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}
	if len(report.WeakSections) > 0 {
		output.WriteString("Weak Sections:\n")
		for _, section := range report.WeakSections {
			output.WriteString(fmt.Sprintf("- %s\n", section))
		}
		output.WriteString("\n")
	}
}

// writeScoreReportMarkdown renders a score report section in markdown
func writeScoreReportMarkdown(output *strings.Builder, report *types.ScoreReport) {
	output.WriteString(fmt.Sprintf("**Score:** %.0f/100\n\n", report.Score))

	if len(report.MatchedKeywords) > 0 {
		output.WriteString("### Matched Keywords\n")
		for _, kw := range report.MatchedKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}
	if len(report.MissingKeywords) > 0 {
		output.WriteString("### Missing Keywords\n")
		for _, kw := range report.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}
	if len(report.WeakSections) > 0 {
		output.WriteString("### Weak Sections\n")
		for _, section := range report.WeakSections {
			output.WriteString(fmt.Sprintf("- %s\n", section))
		}
		output.WriteString("\n")
	}
}

// AnalyzeTextFormatter handles text formatting for analyze results
type AnalyzeTextFormatter struct{}

func (atf *AnalyzeTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.AnalyzeResult)
	if !ok {
		return "", fmt.Errorf("expected *AnalyzeResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ATS ANALYSIS ===\n\n")
	if result.ResumeJSON != nil && result.ResumeJSON.Personal.Name != "" {
		output.WriteString(fmt.Sprintf("Candidate: %s\n\n", result.ResumeJSON.Personal.Name))
	}
	writeScoreReport(&output, result.InitialATSData)

	if result.ResumeJSON != nil {
		output.WriteString("=== PARSED RESUME ===\n")
		output.WriteString(fmt.Sprintf("Experience entries: %d\n", len(result.ResumeJSON.Experience)))
		output.WriteString(fmt.Sprintf("Education entries:  %d\n", len(result.ResumeJSON.Education)))
		output.WriteString(fmt.Sprintf("Projects:           %d\n", len(result.ResumeJSON.Projects)))
		output.WriteString(fmt.Sprintf("Skill groups:       %d\n", len(result.ResumeJSON.Skills)))
	}

	return output.String(), nil
}

func (atf *AnalyzeTextFormatter) SupportedType() string {
	return "AnalyzeResult"
}

// AnalyzeMarkdownFormatter handles markdown formatting for analyze results
type AnalyzeMarkdownFormatter struct{}

func (amf *AnalyzeMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.AnalyzeResult)
	if !ok {
		return "", fmt.Errorf("expected *AnalyzeResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ATS Analysis\n\n")
	if result.ResumeJSON != nil && result.ResumeJSON.Personal.Name != "" {
		output.WriteString(fmt.Sprintf("**Candidate:** %s\n\n", result.ResumeJSON.Personal.Name))
	}
	writeScoreReportMarkdown(&output, result.InitialATSData)

	if result.ResumeJSON != nil {
		output.WriteString("## Parsed Resume\n\n")
		output.WriteString("| Section | Entries |\n|---|---|\n")
		output.WriteString(fmt.Sprintf("| Experience | %d |\n", len(result.ResumeJSON.Experience)))
		output.WriteString(fmt.Sprintf("| Education | %d |\n", len(result.ResumeJSON.Education)))
		output.WriteString(fmt.Sprintf("| Projects | %d |\n", len(result.ResumeJSON.Projects)))
		output.WriteString(fmt.Sprintf("| Skill groups | %d |\n", len(result.ResumeJSON.Skills)))
	}

	return output.String(), nil
}

func (amf *AnalyzeMarkdownFormatter) SupportedType() string {
	return "AnalyzeResult"
}

// OptimizeTextFormatter handles text formatting for optimize results
type OptimizeTextFormatter struct{}

func (otf *OptimizeTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.OptimizeResult)
	if !ok {
		return "", fmt.Errorf("expected *OptimizeResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== FINAL ATS SCORE ===\n\n")
	writeScoreReport(&output, result.FinalATSData)

	if result.FormattedOutput != "" {
		output.WriteString("=== RENDERCV OUTPUT ===\n\n")
		output.WriteString(result.FormattedOutput)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (otf *OptimizeTextFormatter) SupportedType() string {
	return "OptimizeResult"
}

// OptimizeMarkdownFormatter handles markdown formatting for optimize results
type OptimizeMarkdownFormatter struct{}

func (omf *OptimizeMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.OptimizeResult)
	if !ok {
		return "", fmt.Errorf("expected *OptimizeResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Optimization Result\n\n")
	output.WriteString("## Final ATS Score\n\n")
	writeScoreReportMarkdown(&output, result.FinalATSData)

	if result.FormattedOutput != "" {
		output.WriteString("## RenderCV Output\n\n")
		output.WriteString("```yaml\n")
		output.WriteString(result.FormattedOutput)
		output.WriteString("\n```\n")
	}

	return output.String(), nil
}

func (omf *OptimizeMarkdownFormatter) SupportedType() string {
	return "OptimizeResult"
}

// OptimizeYAMLFormatter emits only the RenderCV document, ready to feed into
// rendercv directly.
type OptimizeYAMLFormatter struct{}

func (oyf *OptimizeYAMLFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.OptimizeResult)
	if !ok {
		return "", fmt.Errorf("expected *OptimizeResult, got %T", data)
	}
	if result.FormattedOutput == "" {
		return "", fmt.Errorf("optimize result carries no formatted output")
	}
	return result.FormattedOutput, nil
}

func (oyf *OptimizeYAMLFormatter) SupportedType() string {
	return "OptimizeResult"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()

package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"atsforge/internal/config"
	atsErrors "atsforge/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Generator for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	httpClient     *http.Client
	config         *config.OperationAIConfig
	operationType  string
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *atsErrors.Logger
}

// Ensure GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific stage
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *atsErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, atsErrors.NewAIError(atsErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	// Initialize circuit breaker with stage-specific configuration
	circuitBreaker := NewAICircuitBreaker(operationType, cfg, logger)
	modelBreaker := NewModelCircuitBreaker(operationType, cfg, logger)

	return &GeminiProvider{
		client: client,
		httpClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
		config:         cfg,
		operationType:  operationType,
		circuitBreaker: circuitBreaker,
		modelBreaker:   modelBreaker,
		logger:         logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	// Get model information from Gemini API with circuit breaker
	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)

		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// modelCheckTimeout bounds health-check calls so a slow model lookup cannot
// stall the readiness endpoint.
const modelCheckTimeout = 10 * time.Second

// Generate runs a single generation for the given pipeline operation. The user
// prompt template for the operation is formatted with args; see the template
// documentation in prompts.go for the expected argument order. The raw model
// text is returned unparsed so callers own payload extraction and validation.
func (g *GeminiProvider) Generate(ctx context.Context, op Operation, args ...any) (string, *TokenUsage, error) {
	systemPrompt := g.getSystemPrompt(op)
	userPrompt := fmt.Sprintf(g.getUserPrompt(op), args...)

	tracer := otel.Tracer("atsforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+string(op))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("ai.operation", string(op)),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("ai.prompt_length", len(userPrompt)),
	)

	genaiConfig := &genai.GenerateContentConfig{}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, string(op), func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, atsErrors.NewTransportError("Failed to generate content for "+string(op), err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	text := result.Text()
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ai.response_length", len(text)),
	)
	return text, tokenUsage, nil
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !g.isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (g *GeminiProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network errors (timeouts, connection issues)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
		// Consider other network errors retryable (e.g., connection refused)
		return true
	}

	// Check for Google API errors (HTTP status codes)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}

	// Overall health - both breakers must be healthy
	aiHealthy := g.circuitBreaker.IsHealthy()
	modelHealthy := g.modelBreaker.IsModelHealthy()
	stats["overall_healthy"] = aiHealthy && modelHealthy

	return stats
}

// Close implements Generator
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// getSystemPrompt returns the system prompt for the operation, prioritizing
// file-loaded content, then config values, then the built-in defaults.
func (g *GeminiProvider) getSystemPrompt(op Operation) string {
	loaded := config.GetPromptsForOperation(g.operationType)
	fromConfig := &g.config.CustomPrompts.SystemPrompts

	switch op {
	case OpParseResume:
		return resolvePrompt(loaded.SystemPrompts.ParseResume, fromConfig.ParseResume, DefaultSystemPrompts.ParseResume)
	case OpScoreBefore:
		return resolvePrompt(loaded.SystemPrompts.ScoreBefore, fromConfig.ScoreBefore, DefaultSystemPrompts.ScoreBefore)
	case OpScoreAfter:
		return resolvePrompt(loaded.SystemPrompts.ScoreAfter, fromConfig.ScoreAfter, DefaultSystemPrompts.ScoreAfter)
	case OpOptimizeResume:
		return resolvePrompt(loaded.SystemPrompts.OptimizeResume, fromConfig.OptimizeResume, DefaultSystemPrompts.OptimizeResume)
	case OpFormatResume:
		return resolvePrompt(loaded.SystemPrompts.FormatResume, fromConfig.FormatResume, DefaultSystemPrompts.FormatResume)
	default:
		return ""
	}
}

// getUserPrompt returns the user prompt template for the operation
func (g *GeminiProvider) getUserPrompt(op Operation) string {
	loaded := config.GetPromptsForOperation(g.operationType)
	fromConfig := &g.config.CustomPrompts.UserPrompts

	switch op {
	case OpParseResume:
		return resolvePrompt(loaded.UserPrompts.ParseResume, fromConfig.ParseResume, DefaultUserPrompts.ParseResume)
	case OpScoreBefore:
		return resolvePrompt(loaded.UserPrompts.ScoreBefore, fromConfig.ScoreBefore, DefaultUserPrompts.ScoreBefore)
	case OpScoreAfter:
		return resolvePrompt(loaded.UserPrompts.ScoreAfter, fromConfig.ScoreAfter, DefaultUserPrompts.ScoreAfter)
	case OpOptimizeResume:
		return resolvePrompt(loaded.UserPrompts.OptimizeResume, fromConfig.OptimizeResume, DefaultUserPrompts.OptimizeResume)
	case OpFormatResume:
		return resolvePrompt(loaded.UserPrompts.FormatResume, fromConfig.FormatResume, DefaultUserPrompts.FormatResume)
	default:
		return ""
	}
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Add returns the element-wise sum of two usages, tolerating nil operands.
func (t *TokenUsage) Add(other *TokenUsage) *TokenUsage {
	if t == nil {
		return other
	}
	if other == nil {
		return t
	}
	return &TokenUsage{
		InputTokens:  t.InputTokens + other.InputTokens,
		OutputTokens: t.OutputTokens + other.OutputTokens,
		TotalTokens:  t.TotalTokens + other.TotalTokens,
	}
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// resolvePrompt selects the correct prompt string based on priority:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. A hardcoded default prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

package server

import (
	"time"

	"atsforge/internal/ai"
	"atsforge/internal/config"
	atsErrors "atsforge/internal/errors"
	"atsforge/internal/pipeline"
	"atsforge/internal/types"
)

// OptimizeRequest represents the request body for the optimize endpoint. The
// caller feeds back the resumeJson and initialAtsData it received from a
// prior analyze call.
type OptimizeRequest struct {
	ResumeJSON     *types.StructuredResume `json:"resumeJson"`
	InitialATSData *types.ScoreReport      `json:"initialAtsData"`
	JobDescription string                  `json:"rawJdText"`
}

// AnalyzeTextRequest is the JSON form of the analyze endpoint, for callers
// that already hold plain resume text instead of a PDF.
type AnalyzeTextRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *atsErrors.Logger

	// Per-stage AI services, created once at startup so circuit breaker
	// state survives across requests
	parseService    *ai.Service
	scoreService    *ai.Service
	optimizeService *ai.Service
	formatService   *ai.Service

	pipeline      *pipeline.Pipeline
	promptWatcher *config.PromptWatcher
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *atsErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}

// initializeAIServices creates the per-stage AI services and the pipeline.
func (s *Server) initializeAIServices(metrics pipeline.StageMetrics) error {
	parseCfg := s.AppConfig.GetParseConfig()
	scoreCfg := s.AppConfig.GetScoreConfig()
	optimizeCfg := s.AppConfig.GetOptimizeConfig()
	formatCfg := s.AppConfig.GetFormatConfig()

	var err error
	if s.parseService, err = ai.NewService(&parseCfg, "parse", s.Logger); err != nil {
		return err
	}
	if s.scoreService, err = ai.NewService(&scoreCfg, "score", s.Logger); err != nil {
		return err
	}
	if s.optimizeService, err = ai.NewService(&optimizeCfg, "optimize", s.Logger); err != nil {
		return err
	}
	if s.formatService, err = ai.NewService(&formatCfg, "format", s.Logger); err != nil {
		return err
	}

	opts := []pipeline.Option{}
	if metrics != nil {
		opts = append(opts, pipeline.WithStageMetrics(metrics))
	}
	s.pipeline = pipeline.New(
		s.parseService.Provider,
		s.scoreService.Provider,
		s.optimizeService.Provider,
		s.formatService.Provider,
		s.AppConfig.GetScoringPolicy(),
		s.Logger,
		opts...,
	)

	return nil
}

// closeAIServices releases provider resources.
func (s *Server) closeAIServices() {
	for _, svc := range []*ai.Service{s.parseService, s.scoreService, s.optimizeService, s.formatService} {
		if svc == nil {
			continue
		}
		if err := svc.Provider.Close(); err != nil {
			s.Logger.Warn("Failed to close AI provider", "error", err.Error())
		}
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	atsErrors "atsforge/internal/errors"
	"atsforge/internal/extractor"
	"atsforge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// createAnalyzeHandler wraps the analyze flow with observability. The request
// is either multipart form data carrying a resume file (PDF or plain text)
// plus a jobDescription field, or a JSON body with resumeText.
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.analyze")
		defer span.End()

		resumeText, jobDescription, err := s.readAnalyzeRequest(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(resumeText) == "" {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing resume", "resume file or resumeText field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(jobDescription) == "" {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing job description", "jobDescription field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(resumeText)),
			attribute.Int("request.job_length", len(jobDescription)),
			attribute.String("operation", "analyze"),
		)

		metrics := om.GetMetrics()
		result, err := s.pipeline.Analyze(ctx, resumeText, jobDescription)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "resume_analyzed", false, om,
				attribute.String("error", err.Error()))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "resume_analyzed", true, om,
			attribute.Float64("ats.score", result.InitialATSData.Score),
			attribute.Int("ats.missing_keywords", len(result.InitialATSData.MissingKeywords)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Float64("ats.score", result.InitialATSData.Score),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createOptimizeHandler wraps the optimize flow with observability.
func (s *Server) createOptimizeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.optimize")
		defer span.End()

		var req OptimizeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if req.ResumeJSON == nil {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing resume", "resumeJson field is required", http.StatusBadRequest)
			return
		}
		if req.InitialATSData == nil {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing initial score", "initialAtsData field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing job description", "rawJdText field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.Float64("request.initial_score", req.InitialATSData.Score),
			attribute.String("operation", "optimize"),
		)

		metrics := om.GetMetrics()
		result, err := s.pipeline.Optimize(ctx, req.ResumeJSON, req.InitialATSData, req.JobDescription)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "resume_optimized", false, om,
				attribute.String("error", err.Error()))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "resume_optimized", true, om,
			attribute.Float64("ats.final_score", result.FinalATSData.Score),
			attribute.Int("output.formatted_length", len(result.FormattedOutput)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Float64("ats.final_score", result.FinalATSData.Score),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// readAnalyzeRequest extracts resume text and job description from either a
// multipart upload or a JSON body.
func (s *Server) readAnalyzeRequest(r *http.Request) (resumeText, jobDescription string, err error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return s.readMultipartAnalyzeRequest(r)
	}

	var req AnalyzeTextRequest
	if err := parseJSONRequest(r, &req); err != nil {
		return "", "", err
	}
	return req.ResumeText, req.JobDescription, nil
}

// readMultipartAnalyzeRequest handles file uploads. PDF files go through the
// text extractor; anything else is treated as plain text.
func (s *Server) readMultipartAnalyzeRequest(r *http.Request) (string, string, error) {
	maxMemory := s.MaxRequestSize
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return "", "", fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		return "", "", fmt.Errorf("resume file is required: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.Warn("Failed to close uploaded file", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("failed to read resume file: %w", err)
	}

	jobDescription := r.FormValue("jobDescription")

	if isPDF(header.Filename, data) {
		text, err := extractor.PDFText(data)
		if err != nil {
			return "", "", err
		}
		return text, jobDescription, nil
	}

	return string(data), jobDescription, nil
}

// isPDF detects PDF uploads by magic bytes, falling back to the extension.
func isPDF(filename string, data []byte) bool {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// writeAppError maps pipeline error codes to HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case atsErrors.IsCode(err, atsErrors.ErrCodeParseFailure):
		status = http.StatusUnprocessableEntity
	case atsErrors.IsCode(err, atsErrors.ErrCodeGenerationTransport):
		status = http.StatusBadGateway
	case atsErrors.IsCode(err, atsErrors.ErrCodeExtractionFailed):
		status = http.StatusBadRequest
	case atsErrors.IsCode(err, atsErrors.ErrCodeInvalidRequest):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if appErr, ok := err.(*atsErrors.AppError); ok {
		message = appErr.Message
	}
	writeErrorResponse(w, "Request failed", message, status)
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

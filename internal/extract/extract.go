// Package extract recovers machine-parseable payloads from free-form LLM
// output. Models wrap JSON in markdown fences, prepend commentary, or
// truncate; every generation call in the pipeline funnels its raw text
// through this package before unmarshaling.
package extract

import (
	"fmt"
	"strings"
)

const snippetLen = 50

// MalformedGenerationError reports that no structured payload could be
// located in the generated text. Snippet holds the start of the raw output
// for diagnostics.
type MalformedGenerationError struct {
	Snippet string
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("no structured payload found in generated text: %q", e.Snippet)
}

func newMalformedError(raw string) *MalformedGenerationError {
	snippet := strings.TrimSpace(raw)
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}
	return &MalformedGenerationError{Snippet: snippet}
}

// JSONPayload extracts a JSON object from raw generated text.
// Attempts, in order: a ```json or ```yaml fence, a generic ``` fence,
// then the substring from the first '{' to the last '}'. Returns a
// MalformedGenerationError when all attempts fail.
func JSONPayload(raw string) (string, error) {
	if body, ok := fencedBlock(raw); ok {
		return body, nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", newMalformedError(raw)
}

// Document extracts a YAML-like document from raw generated text. Only fence
// stripping applies; when no fence is present the trimmed raw text is
// returned as-is, since a plain document needs no unwrapping.
func Document(raw string) string {
	if body, ok := fencedBlock(raw); ok {
		return body
	}
	return strings.TrimSpace(raw)
}

// fencedBlock returns the interior of the first markdown code fence in text,
// handling ```json, ```yaml, bare ``` and a language tag on the opening line.
func fencedBlock(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)

	for _, tag := range []string{"```json", "```yaml"} {
		if idx := strings.Index(trimmed, tag); idx >= 0 {
			body := trimmed[idx+len(tag):]
			if end := strings.LastIndex(body, "```"); end >= 0 {
				body = body[:end]
			}
			return strings.TrimSpace(body), true
		}
	}

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		body := trimmed[idx+3:]
		// Drop a language identifier on the opening line.
		if nl := strings.Index(body, "\n"); nl >= 0 {
			first := strings.TrimSpace(body[:nl])
			if first != "" && len(first) < 20 && !strings.ContainsAny(first, " {[") {
				body = body[nl+1:]
			}
		}
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body), true
	}

	return "", false
}

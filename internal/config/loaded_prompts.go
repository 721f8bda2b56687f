package config

import (
	"sync"
)

var (
	loadedPrompts AllLoadedPrompts
	promptsMu     sync.RWMutex
)

// LoadedPrompts holds the content of prompts loaded from files
type LoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// LoadedSystemPrompts contains loaded system-level instructions
type LoadedSystemPrompts struct {
	ParseResume    string
	ScoreBefore    string
	ScoreAfter     string
	OptimizeResume string
	FormatResume   string
}

// LoadedUserPrompts contains loaded user-level prompt templates
type LoadedUserPrompts struct {
	ParseResume    string
	ScoreBefore    string
	ScoreAfter     string
	OptimizeResume string
	FormatResume   string
}

// OperationLoadedPrompts holds loaded prompts for a specific pipeline stage
type OperationLoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// AllLoadedPrompts holds all loaded prompts for all stages
type AllLoadedPrompts struct {
	Global   LoadedPrompts
	Parse    OperationLoadedPrompts
	Score    OperationLoadedPrompts
	Optimize OperationLoadedPrompts
	Format   OperationLoadedPrompts
}

// GetPromptsForOperation returns a copy of the loaded prompts for a stage.
// Safe for concurrent use with the prompt file watcher.
func GetPromptsForOperation(operationType string) OperationLoadedPrompts {
	promptsMu.RLock()
	defer promptsMu.RUnlock()

	switch operationType {
	case "parse":
		return loadedPrompts.Parse
	case "score":
		return loadedPrompts.Score
	case "optimize":
		return loadedPrompts.Optimize
	case "format":
		return loadedPrompts.Format
	default:
		return OperationLoadedPrompts{
			SystemPrompts: loadedPrompts.Global.SystemPrompts,
			UserPrompts:   loadedPrompts.Global.UserPrompts,
		}
	}
}

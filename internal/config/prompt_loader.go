package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles loads custom prompts from external files if file paths
// are specified. Called at startup and again by the prompt watcher on change.
func (c *Config) loadPromptsFromFiles() error {
	var next AllLoadedPrompts

	type target struct {
		prompts *PromptConfig
		loaded  *OperationLoadedPrompts
		name    string
	}

	global := OperationLoadedPrompts{}
	targets := []target{
		{&c.AI.CustomPrompts, &global, "global"},
		{&c.AI.Parse.CustomPrompts, &next.Parse, "parse"},
		{&c.AI.Score.CustomPrompts, &next.Score, "score"},
		{&c.AI.Optimize.CustomPrompts, &next.Optimize, "optimize"},
		{&c.AI.Format.CustomPrompts, &next.Format, "format"},
	}

	for _, t := range targets {
		if err := loadSystemPromptFiles(&t.prompts.SystemPrompts, &t.loaded.SystemPrompts, t.name); err != nil {
			return err
		}
		if err := loadUserPromptFiles(&t.prompts.UserPrompts, &t.loaded.UserPrompts, t.name); err != nil {
			return err
		}
	}
	next.Global = LoadedPrompts{SystemPrompts: global.SystemPrompts, UserPrompts: global.UserPrompts}

	promptsMu.Lock()
	loadedPrompts = next
	promptsMu.Unlock()

	return nil
}

// loadSystemPromptFiles loads system prompts from files if file paths are specified
func loadSystemPromptFiles(prompts *SystemPrompts, target *LoadedSystemPrompts, operation string) error {
	entries := []struct {
		file string
		dst  *string
		name string
	}{
		{prompts.ParseResumeFile, &target.ParseResume, "parseResume"},
		{prompts.ScoreBeforeFile, &target.ScoreBefore, "scoreBefore"},
		{prompts.ScoreAfterFile, &target.ScoreAfter, "scoreAfter"},
		{prompts.OptimizeResumeFile, &target.OptimizeResume, "optimizeResume"},
		{prompts.FormatResumeFile, &target.FormatResume, "formatResume"},
	}
	for _, e := range entries {
		if e.file == "" {
			continue
		}
		content, err := loadPromptFromFile(e.file, "system", operation+"."+e.name)
		if err != nil {
			return err
		}
		*e.dst = content
	}
	return nil
}

// loadUserPromptFiles loads user prompts from files if file paths are specified
func loadUserPromptFiles(prompts *UserPrompts, target *LoadedUserPrompts, operation string) error {
	entries := []struct {
		file string
		dst  *string
		name string
	}{
		{prompts.ParseResumeFile, &target.ParseResume, "parseResume"},
		{prompts.ScoreBeforeFile, &target.ScoreBefore, "scoreBefore"},
		{prompts.ScoreAfterFile, &target.ScoreAfter, "scoreAfter"},
		{prompts.OptimizeResumeFile, &target.OptimizeResume, "optimizeResume"},
		{prompts.FormatResumeFile, &target.FormatResume, "formatResume"},
	}
	for _, e := range entries {
		if e.file == "" {
			continue
		}
		content, err := loadPromptFromFile(e.file, "user", operation+"."+e.name)
		if err != nil {
			return err
		}
		*e.dst = content
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	// Resolve relative paths
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmed))

	return trimmed, nil
}

// PromptFilePaths returns every configured prompt override file path, for the
// watcher to observe.
func (c *Config) PromptFilePaths() []string {
	var paths []string
	add := func(p string) {
		if p != "" {
			paths = append(paths, p)
		}
	}

	for _, pc := range []*PromptConfig{
		&c.AI.CustomPrompts,
		&c.AI.Parse.CustomPrompts,
		&c.AI.Score.CustomPrompts,
		&c.AI.Optimize.CustomPrompts,
		&c.AI.Format.CustomPrompts,
	} {
		add(pc.SystemPrompts.ParseResumeFile)
		add(pc.SystemPrompts.ScoreBeforeFile)
		add(pc.SystemPrompts.ScoreAfterFile)
		add(pc.SystemPrompts.OptimizeResumeFile)
		add(pc.SystemPrompts.FormatResumeFile)
		add(pc.UserPrompts.ParseResumeFile)
		add(pc.UserPrompts.ScoreBeforeFile)
		add(pc.UserPrompts.ScoreAfterFile)
		add(pc.UserPrompts.OptimizeResumeFile)
		add(pc.UserPrompts.FormatResumeFile)
	}
	return paths
}

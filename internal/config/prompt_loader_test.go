package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "Test system prompt for parsing"
	userPromptContent := "Test user prompt template: %s"

	systemPromptFile := filepath.Join(tempDir, "system.parse.md")
	userPromptFile := filepath.Join(tempDir, "user.parse.md")

	if err := os.WriteFile(systemPromptFile, []byte(systemPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test system prompt file: %v", err)
	}

	if err := os.WriteFile(userPromptFile, []byte(userPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test user prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Parse: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: SystemPrompts{
						ParseResumeFile: systemPromptFile,
					},
					UserPrompts: UserPrompts{
						ParseResumeFile: userPromptFile,
					},
				},
			},
		},
	}

	err := config.loadPromptsFromFiles()
	if err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	// Verify content was loaded into global loadedPrompts
	loadedOps := GetPromptsForOperation("parse")

	if loadedOps.SystemPrompts.ParseResume != systemPromptContent {
		t.Errorf("Expected loaded system prompt content '%s', got '%s'",
			systemPromptContent, loadedOps.SystemPrompts.ParseResume)
	}

	if loadedOps.UserPrompts.ParseResume != userPromptContent {
		t.Errorf("Expected loaded user prompt content '%s', got '%s'",
			userPromptContent, loadedOps.UserPrompts.ParseResume)
	}

	// Verify file paths are preserved (immutable config design)
	if config.AI.Parse.CustomPrompts.SystemPrompts.ParseResumeFile != systemPromptFile {
		t.Error("Expected system prompt file path to be preserved")
	}

	if config.AI.Parse.CustomPrompts.UserPrompts.ParseResumeFile != userPromptFile {
		t.Error("Expected user prompt file path to be preserved")
	}
}

func TestLoadPromptsFromFilesScoreVariants(t *testing.T) {
	tempDir := t.TempDir()

	beforeContent := "Score before prompt"
	afterContent := "Score after prompt"

	beforeFile := filepath.Join(tempDir, "score_before.md")
	afterFile := filepath.Join(tempDir, "score_after.md")

	if err := os.WriteFile(beforeFile, []byte(beforeContent), 0600); err != nil {
		t.Fatalf("Failed to create before prompt file: %v", err)
	}
	if err := os.WriteFile(afterFile, []byte(afterContent), 0600); err != nil {
		t.Fatalf("Failed to create after prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Score: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: SystemPrompts{
						ScoreBeforeFile: beforeFile,
						ScoreAfterFile:  afterFile,
					},
				},
			},
		},
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	loadedOps := GetPromptsForOperation("score")
	if loadedOps.SystemPrompts.ScoreBefore != beforeContent {
		t.Errorf("Expected score before prompt '%s', got '%s'", beforeContent, loadedOps.SystemPrompts.ScoreBefore)
	}
	if loadedOps.SystemPrompts.ScoreAfter != afterContent {
		t.Errorf("Expected score after prompt '%s', got '%s'", afterContent, loadedOps.SystemPrompts.ScoreAfter)
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content := "Test prompt content"
	testFile := filepath.Join(tempDir, "test.md")
	if err := os.WriteFile(testFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	loadedContent, err := loadPromptFromFile(testFile, "system", "parse.parseResume")
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}

	if loadedContent != content {
		t.Errorf("Expected content '%s', got '%s'", content, loadedContent)
	}

	// Empty file should be rejected
	emptyFile := filepath.Join(tempDir, "empty.md")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0600); err != nil {
		t.Fatalf("Failed to create empty test file: %v", err)
	}

	_, err = loadPromptFromFile(emptyFile, "system", "parse.parseResume")
	if err == nil {
		t.Error("Expected error for empty file")
	}

	// Non-existent file should be rejected
	_, err = loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), "system", "parse.parseResume")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestPromptFilePaths(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{
				SystemPrompts: SystemPrompts{
					ParseResumeFile: "/etc/atsforge/prompts/parse.system.md",
				},
			},
			Score: OperationAIConfig{
				CustomPrompts: PromptConfig{
					UserPrompts: UserPrompts{
						ScoreAfterFile: "/etc/atsforge/prompts/score_after.user.md",
					},
				},
			},
		},
	}

	paths := config.PromptFilePaths()
	if len(paths) != 2 {
		t.Fatalf("Expected 2 configured prompt file paths, got %d: %v", len(paths), paths)
	}

	found := map[string]bool{}
	for _, p := range paths {
		found[p] = true
	}
	if !found["/etc/atsforge/prompts/parse.system.md"] {
		t.Error("Expected global parse system prompt file in watch list")
	}
	if !found["/etc/atsforge/prompts/score_after.user.md"] {
		t.Error("Expected score after user prompt file in watch list")
	}
}

func TestPromptFileIntegration(t *testing.T) {
	tempDir := t.TempDir()

	systemPrompt := "Custom system prompt for testing"
	userPrompt := "Custom user prompt: %s %s"

	systemFile := filepath.Join(tempDir, "system.md")
	userFile := filepath.Join(tempDir, "user.md")

	if err := os.WriteFile(systemFile, []byte(systemPrompt), 0600); err != nil {
		t.Fatalf("Failed to create system prompt file: %v", err)
	}

	if err := os.WriteFile(userFile, []byte(userPrompt), 0600); err != nil {
		t.Fatalf("Failed to create user prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Provider:    "gemini",
			Model:       "test-model",
			Timeout:     60 * time.Second,
			APIKey:      "test-key",
			MaxRetries:  3,
			Temperature: 0.7,
			Optimize: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: SystemPrompts{
						OptimizeResumeFile: systemFile,
					},
					UserPrompts: UserPrompts{
						OptimizeResumeFile: userFile,
					},
				},
			},
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1024 * 1024,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
	}

	// Apply fallbacks (simulating the full config loading process)
	config.applyFallbacks()

	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	loadedOps := GetPromptsForOperation("optimize")

	if loadedOps.SystemPrompts.OptimizeResume != systemPrompt {
		t.Errorf("Expected system prompt '%s', got '%s'",
			systemPrompt, loadedOps.SystemPrompts.OptimizeResume)
	}

	if loadedOps.UserPrompts.OptimizeResume != userPrompt {
		t.Errorf("Expected user prompt '%s', got '%s'",
			userPrompt, loadedOps.UserPrompts.OptimizeResume)
	}

	// Original config paths are preserved
	if config.AI.Optimize.CustomPrompts.SystemPrompts.OptimizeResumeFile != systemFile {
		t.Error("Expected system prompt file path to be preserved")
	}

	if config.AI.Optimize.CustomPrompts.UserPrompts.OptimizeResumeFile != userFile {
		t.Error("Expected user prompt file path to be preserved")
	}
}

package config

// applyOperationDefaults applies global defaults to stage-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetParseConfig returns the AI configuration for the parser stage with fallback to global config
func (c *Config) GetParseConfig() OperationAIConfig {
	config := c.AI.Parse
	c.applyOperationDefaults(&config)

	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ParseResume, c.AI.CustomPrompts.SystemPrompts.ParseResume)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ParseResumeFile, c.AI.CustomPrompts.SystemPrompts.ParseResumeFile)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ParseResume, c.AI.CustomPrompts.UserPrompts.ParseResume)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ParseResumeFile, c.AI.CustomPrompts.UserPrompts.ParseResumeFile)

	return config
}

// GetScoreConfig returns the AI configuration for the scorer stage with fallback
// to global config. Both the before and after score variants share it.
func (c *Config) GetScoreConfig() OperationAIConfig {
	config := c.AI.Score
	c.applyOperationDefaults(&config)

	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ScoreBefore, c.AI.CustomPrompts.SystemPrompts.ScoreBefore)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ScoreBeforeFile, c.AI.CustomPrompts.SystemPrompts.ScoreBeforeFile)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ScoreAfter, c.AI.CustomPrompts.SystemPrompts.ScoreAfter)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.ScoreAfterFile, c.AI.CustomPrompts.SystemPrompts.ScoreAfterFile)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ScoreBefore, c.AI.CustomPrompts.UserPrompts.ScoreBefore)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ScoreBeforeFile, c.AI.CustomPrompts.UserPrompts.ScoreBeforeFile)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ScoreAfter, c.AI.CustomPrompts.UserPrompts.ScoreAfter)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.ScoreAfterFile, c.AI.CustomPrompts.UserPrompts.ScoreAfterFile)

	return config
}

// GetOptimizeConfig returns the AI configuration for the optimizer stage with fallback to global config
func (c *Config) GetOptimizeConfig() OperationAIConfig {
	config := c.AI.Optimize
	c.applyOperationDefaults(&config)

	fallbackPrompt(&config.CustomPrompts.SystemPrompts.OptimizeResume, c.AI.CustomPrompts.SystemPrompts.OptimizeResume)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.OptimizeResumeFile, c.AI.CustomPrompts.SystemPrompts.OptimizeResumeFile)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.OptimizeResume, c.AI.CustomPrompts.UserPrompts.OptimizeResume)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.OptimizeResumeFile, c.AI.CustomPrompts.UserPrompts.OptimizeResumeFile)

	return config
}

// GetFormatConfig returns the AI configuration for the formatter stage with fallback to global config
func (c *Config) GetFormatConfig() OperationAIConfig {
	config := c.AI.Format
	c.applyOperationDefaults(&config)

	fallbackPrompt(&config.CustomPrompts.SystemPrompts.FormatResume, c.AI.CustomPrompts.SystemPrompts.FormatResume)
	fallbackPrompt(&config.CustomPrompts.SystemPrompts.FormatResumeFile, c.AI.CustomPrompts.SystemPrompts.FormatResumeFile)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.FormatResume, c.AI.CustomPrompts.UserPrompts.FormatResume)
	fallbackPrompt(&config.CustomPrompts.UserPrompts.FormatResumeFile, c.AI.CustomPrompts.UserPrompts.FormatResumeFile)

	return config
}

// fallbackPrompt fills target from the global value when the stage override is empty
func fallbackPrompt(target *string, global string) {
	if *target == "" {
		*target = global
	}
}

// GetScoringPolicy returns the scorer clamp policy
func (c *Config) GetScoringPolicy() ScoringPolicyConfig {
	return c.AI.Scoring
}

// GetLoadedGlobalPrompts returns a copy of the loaded global prompts
func (c *Config) GetLoadedGlobalPrompts() LoadedPrompts {
	promptsMu.RLock()
	defer promptsMu.RUnlock()
	return loadedPrompts.Global
}

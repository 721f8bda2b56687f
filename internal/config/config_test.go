package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateScoringPolicy(t *testing.T) {
	base := func() *Config {
		return &Config{
			AI: AIConfig{
				Scoring: ScoringPolicyConfig{
					RegressionBump:         15,
					RegressionFloor:        85,
					RegressionCap:          98,
					FallbackBump:           20,
					FallbackFloor:          88,
					FallbackCap:            98,
					FirstPassFallbackScore: 50,
				},
			},
		}
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().validateScoringPolicy())
	})

	t.Run("regression floor above cap", func(t *testing.T) {
		cfg := base()
		cfg.AI.Scoring.RegressionFloor = 99
		err := cfg.validateScoringPolicy()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "regressionFloor")
	})

	t.Run("fallback floor above cap", func(t *testing.T) {
		cfg := base()
		cfg.AI.Scoring.FallbackFloor = 99
		err := cfg.validateScoringPolicy()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "fallbackFloor")
	})

	t.Run("first pass fallback out of range", func(t *testing.T) {
		cfg := base()
		cfg.AI.Scoring.FirstPassFallbackScore = 150
		err := cfg.validateScoringPolicy()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "firstPassFallbackScore")
	})

	t.Run("first pass fallback negative", func(t *testing.T) {
		cfg := base()
		cfg.AI.Scoring.FirstPassFallbackScore = -1
		assert.Error(t, cfg.validateScoringPolicy())
	})
}

func TestGetScoringPolicy(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			Scoring: ScoringPolicyConfig{
				RegressionBump: 10,
				RegressionCap:  95,
			},
		},
	}

	policy := cfg.GetScoringPolicy()
	assert.Equal(t, float64(10), policy.RegressionBump)
	assert.Equal(t, float64(95), policy.RegressionCap)
}

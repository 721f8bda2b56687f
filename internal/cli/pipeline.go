package cli

import (
	"fmt"

	"atsforge/internal/ai"
	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/pipeline"
)

// buildPipeline creates the per-stage AI services and wires them into a
// pipeline. The returned cleanup closes every provider.
func buildPipeline(cfg *config.Config, logger *errors.Logger) (*pipeline.Pipeline, func(), error) {
	parseCfg := cfg.GetParseConfig()
	scoreCfg := cfg.GetScoreConfig()
	optimizeCfg := cfg.GetOptimizeConfig()
	formatCfg := cfg.GetFormatConfig()

	services := make([]*ai.Service, 0, 4)
	cleanup := func() {
		for _, svc := range services {
			if err := svc.Provider.Close(); err != nil {
				logger.Warn("Failed to close AI provider", "error", err.Error())
			}
		}
	}

	newService := func(opCfg *config.OperationAIConfig, op string) (*ai.Service, error) {
		svc, err := ai.NewService(opCfg, op, logger)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create %s AI service: %w", op, err)
		}
		services = append(services, svc)
		return svc, nil
	}

	parseSvc, err := newService(&parseCfg, "parse")
	if err != nil {
		return nil, nil, err
	}
	scoreSvc, err := newService(&scoreCfg, "score")
	if err != nil {
		return nil, nil, err
	}
	optimizeSvc, err := newService(&optimizeCfg, "optimize")
	if err != nil {
		return nil, nil, err
	}
	formatSvc, err := newService(&formatCfg, "format")
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(
		parseSvc.Provider,
		scoreSvc.Provider,
		optimizeSvc.Provider,
		formatSvc.Provider,
		cfg.GetScoringPolicy(),
		logger,
	)

	return p, cleanup, nil
}

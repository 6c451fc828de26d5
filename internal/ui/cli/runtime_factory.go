package cli

import (
	"fmt"

	coreapp "tokentrace/internal/core/app"
	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"
)

// analysisFactory builds the application core behind the CLI so tests can
// substitute fakes without touching the runtime flow.
type analysisFactory interface {
	New(cfg *config.Config) (*coreapp.App, ports.AnalysisService, error)
}

type coreAnalysisFactory struct{}

func (coreAnalysisFactory) New(cfg *config.Config) (*coreapp.App, ports.AnalysisService, error) {
	app, err := coreapp.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return app, app.AnalysisService(), nil
}

func initializeAnalysis(cfg *config.Config, factory analysisFactory) (*coreapp.App, ports.AnalysisService, error) {
	if factory == nil {
		return nil, nil, fmt.Errorf("analysis factory is required")
	}
	return factory.New(cfg)
}

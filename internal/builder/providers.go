package builder

import (
	"fmt"

	offerapi "github.com/futig/workspace-agent/internal/api/offer"
	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/integration/llm"
	"github.com/futig/workspace-agent/internal/integration/mailer"
	"go.uber.org/zap"
)

// setupGateway builds the generation gateway with providers in priority
// order: OpenAI, Groq, Together, then the local Ollama.
func setupGateway(cfg *config.Config, logger *zap.Logger) (*llm.Gateway, error) {
	if cfg.EnableMocks {
		logger.Info("Using mock generation provider")
		return llm.NewGateway(llm.NewMockConnector(logger)), nil
	}

	hosted := []struct {
		name string
		cfg  config.OpenAICompatibleConfig
	}{
		{"openai", cfg.OpenAICfg},
		{"groq", cfg.GroqCfg},
		{"together", cfg.TogetherCfg},
	}

	var providers []llm.Provider
	for _, p := range hosted {
		if p.cfg.Token == "" {
			logger.Debug("generation provider skipped, no API key", zap.String("provider", p.name))
			continue
		}
		providers = append(providers, llm.NewOpenAIConnector(p.name, p.cfg, logger))
	}

	if cfg.OllamaCfg.Enabled {
		ollama, err := llm.NewOllamaConnector(cfg.OllamaCfg, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, ollama)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: set an API key or enable ollama", entity.ErrProviderNotConfigured)
	}

	gateway := llm.NewGateway(providers...)
	logger.Info("Generation providers configured", zap.Strings("providers", gateway.Providers()))
	return gateway, nil
}

func setupMailer(cfg *config.Config, logger *zap.Logger) offerapi.EmailSender {
	if cfg.EnableMocks || cfg.SMTPCfg.Host == "" {
		logger.Warn("SMTP is not configured, emails are only logged")
		return mailer.NewMockConnector()
	}
	return mailer.NewConnector(cfg.SMTPCfg)
}

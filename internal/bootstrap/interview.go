package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/interview-backend/internal/extraction"
	"github.com/eleven-am/interview-backend/internal/gateway"
	"github.com/eleven-am/interview-backend/internal/generation"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/eleven-am/interview-backend/internal/synthesis"
	"go.uber.org/fx"
	"google.golang.org/genai"
)

func ProvideGenerator(client *genai.Client, cfg *Config, logger *slog.Logger) *generation.Generator {
	return generation.New(client.Models, generation.Config{Model: cfg.GeminiModel}, logger)
}

func ProvideQuestionGenerator(gen *generation.Generator) interview.Generator {
	return gen
}

func ProvideExtractor(client *genai.Client, cfg *Config, logger *slog.Logger) extraction.Extractor {
	return extraction.New(client.Models, extraction.Config{Model: cfg.GeminiModel}, logger)
}

// ProvideSynthesizer returns nil when speech is disabled; interviews then run
// text only.
func ProvideSynthesizer(client *genai.Client, cfg *Config, logger *slog.Logger) synthesis.Synthesizer {
	if !cfg.SpeechEnabled {
		return nil
	}
	return synthesis.NewGemini(client.Models, synthesis.Config{
		Model: cfg.GeminiTTSModel,
		Voice: cfg.GeminiVoice,
	}, logger)
}

func ProvideSessionStore(lc fx.Lifecycle, gen interview.Generator) *interview.Store {
	store := interview.NewStore(gen)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			store.Close()
			return nil
		},
	})
	return store
}

func ProvideDispatcherConfig(cfg *Config) gateway.Config {
	return gateway.Config{
		MaxQuestions:      cfg.MaxQuestions,
		SettleDelay:       cfg.SettleDelay,
		GenerationTimeout: cfg.GenerationTimeout,
	}
}

func ProvideHandlerConfig(cfg *Config) gateway.HandlerConfig {
	return gateway.HandlerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		MessageRate:    cfg.MessageRate,
		MessageBurst:   cfg.MessageBurst,
	}
}

var InterviewModule = fx.Options(
	fx.Provide(
		ProvideGenerator,
		ProvideQuestionGenerator,
		ProvideExtractor,
		ProvideSynthesizer,
		ProvideSessionStore,
		ProvideDispatcherConfig,
		ProvideHandlerConfig,
	),
	gateway.Module,
)

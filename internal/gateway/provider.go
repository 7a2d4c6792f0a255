package gateway

import (
	"context"
	"log/slog"

	"github.com/eleven-am/interview-backend/internal/extraction"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/eleven-am/interview-backend/internal/metrics"
	"github.com/eleven-am/interview-backend/internal/report"
	"github.com/eleven-am/interview-backend/internal/synthesis"
	"go.uber.org/fx"
)

func ProvideRegistry(lc fx.Lifecycle, logger *slog.Logger) *Registry {
	registry := NewRegistry(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			registry.Close()
			return nil
		},
	})
	return registry
}

type DispatcherParams struct {
	fx.In

	Registry  *Registry
	Sessions  *interview.Store
	Extractor extraction.Extractor
	Speech    synthesis.Synthesizer `optional:"true"`
	Metrics   *metrics.Store        `optional:"true"`
	Reports   *report.Store         `optional:"true"`
	Config    Config
	Logger    *slog.Logger
}

func ProvideDispatcher(lc fx.Lifecycle, p DispatcherParams) *Dispatcher {
	var recorder Recorder
	if p.Metrics != nil {
		recorder = p.Metrics
	}
	var archive Archiver
	if p.Reports != nil {
		archive = p.Reports
	}

	dispatcher := NewDispatcher(p.Registry, p.Sessions, p.Extractor, p.Speech, recorder, archive, p.Config, p.Logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			dispatcher.Close()
			return nil
		},
	})
	return dispatcher
}

func ProvideHandler(dispatcher *Dispatcher, cfg HandlerConfig, logger *slog.Logger) *Handler {
	return NewHandler(dispatcher, cfg, logger)
}

var Module = fx.Options(
	fx.Provide(
		ProvideRegistry,
		ProvideDispatcher,
		ProvideHandler,
	),
)

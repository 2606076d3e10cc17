package s3copy

import (
	"context"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"go.uber.org/fx"
)

// Module provides the s3copy pipeline for fx: the observability Instrumenter
// and the Orchestrator. The Gateway (and, optionally, a Logger and a
// ProgressObserver) must come from elsewhere in the graph; the concrete
// Gateway implementation is
// supplied by internal/gw (wired in by cmd/s3copy), keeping this package's
// public surface limited to the stable pipeline types.
//
// Example usage:
//
//	app := fx.New(
//	    s3copy.Module(),
//	    gw.Module(),
//	    fx.Invoke(func(o *s3copy.Orchestrator) { ... }),
//	)
func Module() fx.Option {
	return fx.Module("s3copy",
		fx.Provide(
			NewObservabilityInstrumenter,
			NewOrchestrator,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ObservabilityDeps defines optional observability dependencies.
type ObservabilityDeps struct {
	fx.In

	Metrics metricsx.Metrics `optional:"true"`
	Tracer  tracingx.Tracer  `optional:"true"`
}

// NewObservabilityInstrumenter creates an instrumenter for gateway/executor operations.
func NewObservabilityInstrumenter(deps ObservabilityDeps) *Instrumenter {
	return NewInstrumenter(deps.Metrics, deps.Tracer)
}

// LifecycleParams defines parameters for lifecycle management.
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    Logger `optional:"true"`
}

// registerLifecycle registers startup/shutdown log lines; the orchestrator
// itself owns no long-lived resources (the gateway's client manager does,
// and registers its own hooks in internal/gw's module).
func registerLifecycle(params LifecycleParams) {
	logger := params.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("s3copy module started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("s3copy module stopping")
			return nil
		},
	})
}

// WithCustomGateway provides a concrete Gateway instance to the FX graph.
// Useful for tests or for applications that construct a gateway outside of
// internal/gw's module (e.g. the in-memory fake from internal/testutil).
func WithCustomGateway(g Gateway) fx.Option {
	return fx.Supply(g)
}

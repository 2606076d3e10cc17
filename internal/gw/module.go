package gw

import (
	"context"

	"go.uber.org/fx"

	"github.com/gostratum/s3copy"
)

// Module provides the AWS SDK v2 backed Gateway for fx: the client manager
// (built once at startup from *s3copy.Config) and the Gateway that wraps it.
// Pair with s3copy.Module() - cmd/s3copy is the only caller that needs to
// know a concrete Gateway implementation exists.
func Module() fx.Option {
	return fx.Module("s3copy-gw",
		fx.Provide(
			NewClientManagerForFx,
			fx.Annotate(NewGateway, fx.As(new(s3copy.Gateway))),
		),
		fx.Invoke(registerClientLifecycle),
	)
}

// NewClientManagerForFx adapts NewClientManager to fx's constructor shape,
// needing only the config and logger from the graph.
func NewClientManagerForFx(lc fx.Lifecycle, cfg *s3copy.Config, logger s3copy.Logger) (*ClientManager, error) {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	manager, err := NewClientManager(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return manager.Close()
		},
	})
	return manager, nil
}

func registerClientLifecycle(lc fx.Lifecycle, logger s3copy.Logger) {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Debug("s3 gateway module started")
			return nil
		},
	})
}

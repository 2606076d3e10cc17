package testutil

import (
	"time"

	"go.uber.org/fx"

	"github.com/gostratum/s3copy"
)

// TestModule provides an fx module for tests that want a complete pipeline
// wired against the in-memory FakeGateway instead of a real provider.
//
// Example usage:
//
//	app := fx.New(
//	    testutil.TestModule,
//	    s3copy.Module(),
//	    fx.Invoke(func(o *s3copy.Orchestrator) { ... }),
//	)
var TestModule = fx.Module("s3copy-test",
	fx.Provide(
		NewTestConfig,
		NewTestGateway,
	),
)

// NewTestConfig creates a test configuration pointed at two local buckets,
// suitable for unit tests that don't hit a real provider.
func NewTestConfig() *s3copy.Config {
	cfg := s3copy.DefaultConfig()
	cfg.SourceBucket = "test-src-bucket"
	cfg.SourceKey = "test-object.bin"
	cfg.DestBucket = "test-dst-bucket"
	cfg.DestKey = "test-object.bin"
	cfg.ConcurrencyCap = 4
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

// NewTestGateway provides the FakeGateway as the fx-resolved s3copy.Gateway.
func NewTestGateway() s3copy.Gateway {
	return NewFakeGateway()
}

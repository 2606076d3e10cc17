// Package progress implements C10: a console ProgressObserver that turns
// executor window events into human-facing log lines.
package progress

import (
	"fmt"

	"github.com/gostratum/s3copy"
)

// ConsoleObserver logs one line per tracked event through an s3copy.Logger.
// It is safe for concurrent use; the executor calls it from its own
// control-flow goroutine only, never from part workers, so no locking of its
// own is needed.
type ConsoleObserver struct {
	logger s3copy.Logger
}

// New builds a ConsoleObserver. A nil logger is replaced with a no-op one.
func New(logger s3copy.Logger) *ConsoleObserver {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	return &ConsoleObserver{logger: logger}
}

// TransferStarted implements s3copy.ProgressObserver.
func (c *ConsoleObserver) TransferStarted(key string, strategy s3copy.Strategy, size int64) {
	c.logger.Info("transfer started", "key", key, "strategy", strategy.String(), "size_bytes", size)
}

// WindowCompleted implements s3copy.ProgressObserver.
func (c *ConsoleObserver) WindowCompleted(key string, partsCompleted, totalParts int, throughputBytesPerSec float64, concurrency int) {
	c.logger.Info("window completed", "key", key,
		"progress", fmt.Sprintf("%d/%d", partsCompleted, totalParts),
		"throughput_mb_s", throughputBytesPerSec/(1<<20),
		"concurrency", concurrency)
}

// TransferFinished implements s3copy.ProgressObserver.
func (c *ConsoleObserver) TransferFinished(key string, err error) {
	if err != nil {
		c.logger.Warn("transfer failed", "key", key, "category", s3copy.CategoryOf(err).String(), "error", err)
		return
	}
	c.logger.Info("transfer finished", "key", key)
}

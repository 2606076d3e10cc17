package s3copy

// ProgressObserver receives human-facing progress events during a transfer.
// Unlike Instrumenter, it carries no metrics/tracing plumbing: it exists to
// drive a CLI's progress output and is always safe to leave as a no-op.
type ProgressObserver interface {
	// TransferStarted fires once, after the plan is known but before any
	// part or single-operation request is issued.
	TransferStarted(key string, strategy Strategy, size int64)

	// WindowCompleted fires after each executor window (multipart only),
	// reporting cumulative progress.
	WindowCompleted(key string, partsCompleted, totalParts int, throughputBytesPerSec float64, concurrency int)

	// TransferFinished fires exactly once per transfer, whether it
	// succeeded (err == nil) or failed.
	TransferFinished(key string, err error)
}

// NewNopProgressObserver returns a ProgressObserver that discards every event.
func NewNopProgressObserver() ProgressObserver { return nopProgressObserver{} }

type nopProgressObserver struct{}

func (nopProgressObserver) TransferStarted(string, Strategy, int64)        {}
func (nopProgressObserver) WindowCompleted(string, int, int, float64, int) {}
func (nopProgressObserver) TransferFinished(string, error)                 {}

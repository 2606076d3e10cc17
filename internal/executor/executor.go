// Package executor implements the multipart executor (C6): the state
// machine that drives create_multipart → probe → adaptive windowed
// copy_part → complete_multipart, aborting on any terminal error.
package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/planner"
)

const maxPartAttempts = 6

// throughputHealthyThresholdBytesPerSec is the probe-retune decision bound:
// above it the executor widens part size to cut request count, at or below
// it shrinks concurrency instead. A conservative single-stream-over-WAN
// estimate; operators against a local/VPC-adjacent endpoint clear it easily.
const throughputHealthyThresholdBytesPerSec = 20 << 20 // 20 MiB/s

// Executor runs one multipart transfer to completion or failure.
type Executor struct {
	gw           s3copy.Gateway
	instrumenter *s3copy.Instrumenter
	logger       s3copy.Logger
	observer     s3copy.ProgressObserver

	src, dst s3copy.Coordinate
	opts     s3copy.ReplicationOptions

	state ExecutorState
	clock func() time.Time
}

// ExecutorState is a local alias kept for readability in this package's API;
// the canonical enum lives in the root package.
type ExecutorState = s3copy.ExecutorState

// New builds an Executor for a single src→dst transfer.
func New(gw s3copy.Gateway, instrumenter *s3copy.Instrumenter, logger s3copy.Logger, src, dst s3copy.Coordinate, opts s3copy.ReplicationOptions) *Executor {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	if instrumenter == nil {
		instrumenter = s3copy.NewInstrumenter(nil, nil)
	}
	return &Executor{
		gw: gw, instrumenter: instrumenter, logger: logger,
		observer: s3copy.NewNopProgressObserver(),
		src:      src, dst: dst, opts: opts, state: s3copy.StateInit, clock: time.Now,
	}
}

// WithClock overrides the executor's time source. Tests use this to make
// window-throughput adaptation deterministic.
func (e *Executor) WithClock(clock func() time.Time) *Executor {
	e.clock = clock
	return e
}

// WithObserver attaches a human-facing progress observer. The executor calls
// it at transfer start, after every completed window, and once at the end;
// a nil observer is ignored.
func (e *Executor) WithObserver(observer s3copy.ProgressObserver) *Executor {
	if observer != nil {
		e.observer = observer
	}
	return e
}

// State returns the executor's current state machine position.
func (e *Executor) State() ExecutorState { return e.state }

type partTask struct {
	partNumber int32
	start, end int64
}

type partOutcome struct {
	task          partTask
	record        s3copy.PartRecord
	err           error
	retried       bool
	slowed        bool
	windowElapsed float64
}

// Run drives the full state machine for plan, returning the completed
// destination attributes and the ordered part records on success. On any
// terminal error it aborts the upload (logging, not masking, an abort
// failure) and returns the original error.
func (e *Executor) Run(ctx context.Context, plan s3copy.TransferPlan) (s3copy.Attributes, []s3copy.PartRecord, error) {
	e.state = s3copy.StateInit
	e.observer.TransferStarted(e.dst.Key, s3copy.StrategyMultipart, plan.Size)

	uploadID, err := e.gw.CreateMultipart(ctx, e.dst, e.opts)
	if err != nil {
		e.state = s3copy.StateFailed
		e.observer.TransferFinished(e.dst.Key, err)
		return s3copy.Attributes{}, nil, err
	}
	e.state = s3copy.StateOpen

	completed, finalErr := e.runOpen(ctx, plan, uploadID)
	if finalErr != nil {
		e.state = s3copy.StateAborting
		if abortErr := e.gw.AbortMultipart(ctx, e.dst, uploadID); abortErr != nil {
			e.logger.Warn("abort_multipart failed after a terminal error", "key", e.dst.Key, "upload_id", uploadID, "abort_error", abortErr)
		}
		e.instrumenter.RecordAbort(s3copy.CategoryOf(finalErr))
		e.state = s3copy.StateFailed
		e.observer.TransferFinished(e.dst.Key, finalErr)
		return s3copy.Attributes{}, nil, finalErr
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].PartNumber < completed[j].PartNumber })
	attrs, err := e.gw.CompleteMultipart(ctx, e.dst, uploadID, completed)
	if err != nil {
		e.state = s3copy.StateAborting
		if abortErr := e.gw.AbortMultipart(ctx, e.dst, uploadID); abortErr != nil {
			e.logger.Warn("abort_multipart failed after a complete_multipart error", "key", e.dst.Key, "upload_id", uploadID, "abort_error", abortErr)
		}
		e.instrumenter.RecordAbort(s3copy.CategoryOf(err))
		e.state = s3copy.StateFailed
		e.observer.TransferFinished(e.dst.Key, err)
		return s3copy.Attributes{}, nil, err
	}

	e.state = s3copy.StateDone
	e.instrumenter.RecordTransferOutcome(s3copy.StrategyMultipart, len(completed))
	e.observer.TransferFinished(e.dst.Key, nil)
	return attrs, completed, nil
}

func (e *Executor) runOpen(ctx context.Context, plan s3copy.TransferPlan, uploadID string) ([]s3copy.PartRecord, error) {
	sem := newSemaphore(maxInt(1, plan.InitialConcurrency))
	probeTasks := layoutTasks(1, plan.ProbePartCount, plan.PartSizeBytes, plan.Size)

	probeResults, probeErr := e.runWindow(ctx, uploadID, sem, probeTasks)
	if probeErr != nil {
		if !allSlowDown(probeResults) {
			return nil, probeErr
		}
		// Majority SlowDown: halve concurrency (never below 1) and retry the
		// probe once before giving up.
		retryConcurrency := plan.InitialConcurrency / 2
		if retryConcurrency < 1 {
			retryConcurrency = 1
		}
		sem.Resize(retryConcurrency)
		probeResults, probeErr = e.runWindow(ctx, uploadID, sem, probeTasks)
		if probeErr != nil {
			return nil, probeErr
		}
		plan.InitialConcurrency = retryConcurrency
	}
	e.state = s3copy.StateProbed

	probeStats := statsOf(probeResults)
	currentConcurrency, partSize := e.retune(plan, probeStats)
	e.state = s3copy.StateRunning

	completed := recordsOf(probeResults)
	sizeCompleted := int64(0)
	for _, r := range completed {
		sizeCompleted += r.Size
	}

	remainingTasks := layoutTasks(int32(len(completed))+1, 0, partSize, plan.Size-sizeCompleted)
	for i := range remainingTasks {
		remainingTasks[i].start += sizeCompleted
		remainingTasks[i].end += sizeCompleted
	}
	if int64(len(completed))+int64(len(remainingTasks)) > s3copy.MaxPartCount {
		return nil, s3copy.NewTransferError("execute", e.dst.Key, s3copy.CategoryInvalidPlan, s3copy.ErrInvalidPlan)
	}

	sem.Resize(currentConcurrency)
	previousThroughput := probeStats.throughputBytesPerSec()
	for start := 0; start < len(remainingTasks); start += plan.WindowSize {
		end := start + plan.WindowSize
		if end > len(remainingTasks) {
			end = len(remainingTasks)
		}
		window := remainingTasks[start:end]

		results, err := e.runWindow(ctx, uploadID, sem, window)
		if err != nil {
			return nil, err
		}
		completed = append(completed, recordsOf(results)...)

		stats := statsOf(results)
		e.instrumenter.RecordWindow(stats.throughputBytesPerSec(), stats.errorRate(), currentConcurrency)
		e.observer.WindowCompleted(e.dst.Key, len(completed), plan.PartCount(), stats.throughputBytesPerSec(), currentConcurrency)
		nextConcurrency := adaptConcurrency(currentConcurrency, plan.MaxConcurrency, stats, previousThroughput)
		if nextConcurrency != currentConcurrency {
			sem.Resize(nextConcurrency)
			currentConcurrency = nextConcurrency
		}
		previousThroughput = stats.throughputBytesPerSec()
	}

	return completed, nil
}

// retune implements the PROBED→RUNNING transition of §4.6: widen part size
// when the probe showed a healthy pipe (keeping roughly the original part
// count for the remaining bytes), or shrink concurrency when it didn't.
func (e *Executor) retune(plan s3copy.TransferPlan, probeStats windowStats) (concurrency int, partSize int64) {
	concurrency = plan.InitialConcurrency
	partSize = plan.PartSizeBytes

	if probeStats.throughputBytesPerSec() > throughputHealthyThresholdBytesPerSec {
		remaining := plan.Size - probeStats.bytesTransferred
		targetParts := plan.PartCount() - plan.ProbePartCount
		if targetParts < 1 {
			targetParts = 1
		}
		candidate := remaining / int64(targetParts)
		if candidate > partSize {
			partSize = planner.ApplyFloor(remaining, candidate, targetParts)
		}
	} else {
		concurrency = concurrency - concurrency/4
		if concurrency < 1 {
			concurrency = 1
		}
	}
	return concurrency, partSize
}

func (e *Executor) runWindow(ctx context.Context, uploadID string, sem *semaphore, tasks []partTask) ([]partOutcome, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	results := make([]partOutcome, len(tasks))

	windowCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstErr error
	var errMu sync.Mutex
	var wg sync.WaitGroup

	windowStart := e.clock()
	for i, task := range tasks {
		sem.Acquire()
		wg.Add(1)
		go func(i int, task partTask) {
			defer wg.Done()
			defer sem.Release()

			outcome := e.copyPartWithRetry(windowCtx, uploadID, task)
			results[i] = outcome

			if outcome.err != nil && s3copy.CategoryOf(outcome.err) != s3copy.CategoryCancelled {
				errMu.Lock()
				firstErr = multierr.Append(firstErr, outcome.err)
				errMu.Unlock()
				cancel()
			}
		}(i, task)
	}
	wg.Wait()
	elapsed := e.clock().Sub(windowStart).Seconds()

	if firstErr != nil {
		return results, firstErr
	}
	for i := range results {
		results[i].windowElapsed = elapsed
	}
	return results, nil
}

func (e *Executor) copyPartWithRetry(ctx context.Context, uploadID string, task partTask) partOutcome {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	var lastErr error
	retried := false
	sawSlowDown := false

	for attempt := 0; attempt < maxPartAttempts; attempt++ {
		if ctx.Err() != nil {
			return partOutcome{task: task, err: s3copy.NewTransferError("copy_part", e.dst.Key, s3copy.CategoryCancelled, ctx.Err())}
		}

		etag, err := e.gw.CopyPart(ctx, uploadID, task.partNumber, e.src, e.dst, task.start, task.end)
		if err == nil {
			record := s3copy.PartRecord{PartNumber: task.partNumber, ETag: etag, Size: task.end - task.start, RangeStart: task.start, RangeEnd: task.end}
			e.instrumenter.RecordPartBytes(record.Size)
			return partOutcome{task: task, record: record, retried: retried, slowed: sawSlowDown}
		}

		lastErr = err
		if s3copy.CategoryOf(err) == s3copy.CategorySlowDown {
			sawSlowDown = true
		}
		if !s3copy.IsTransient(err) {
			return partOutcome{task: task, err: err, retried: retried, slowed: sawSlowDown}
		}

		retried = true
		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			return partOutcome{task: task, err: s3copy.NewTransferError("copy_part", e.dst.Key, s3copy.CategoryCancelled, ctx.Err())}
		}
	}

	return partOutcome{task: task, err: lastErr, retried: retried, slowed: sawSlowDown}
}

func layoutTasks(startNumber int32, count int, partSize, remainingSize int64) []partTask {
	total := remainingSize
	if total <= 0 {
		return nil
	}
	n := count
	if n <= 0 {
		n = int(ceilDiv(total, partSize))
	}

	tasks := make([]partTask, 0, n)
	for i := 0; i < n; i++ {
		partNumber := startNumber + int32(i)
		start, end := s3copy.PartLayout(int32(i+1), partSize, total)
		if start >= end {
			break
		}
		tasks = append(tasks, partTask{partNumber: partNumber, start: start, end: end})
	}
	return tasks
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func recordsOf(results []partOutcome) []s3copy.PartRecord {
	records := make([]s3copy.PartRecord, 0, len(results))
	for _, r := range results {
		if r.err == nil {
			records = append(records, r.record)
		}
	}
	return records
}

func statsOf(results []partOutcome) windowStats {
	var stats windowStats
	for _, r := range results {
		if r.err != nil {
			continue
		}
		stats.bytesTransferred += r.record.Size
		stats.partsTotal++
		stats.elapsedSeconds = r.windowElapsed
		if r.retried {
			stats.partsRetried++
		}
		if r.slowed {
			stats.sawSlowDown = true
		}
	}
	return stats
}

func allSlowDown(results []partOutcome) bool {
	if len(results) == 0 {
		return false
	}
	slowed := 0
	for _, r := range results {
		if r.err != nil && s3copy.CategoryOf(r.err) == s3copy.CategorySlowDown {
			slowed++
		}
	}
	return slowed*2 > len(results)
}

package progress

import (
	"testing"

	"github.com/gostratum/s3copy"
)

type recordingLogger struct {
	infoCalls int
	warnCalls int
	lastMsg   string
}

func (r *recordingLogger) Debug(msg string, args ...any) {}
func (r *recordingLogger) Info(msg string, args ...any) {
	r.infoCalls++
	r.lastMsg = msg
}
func (r *recordingLogger) Warn(msg string, args ...any) {
	r.warnCalls++
	r.lastMsg = msg
}
func (r *recordingLogger) Error(msg string, args ...any) {}

func TestConsoleObserver_TransferStartedLogsInfo(t *testing.T) {
	log := &recordingLogger{}
	o := New(log)
	o.TransferStarted("obj.bin", s3copy.StrategyMultipart, 1024)
	if log.infoCalls != 1 {
		t.Errorf("expected exactly one info log, got %d", log.infoCalls)
	}
}

func TestConsoleObserver_WindowCompletedLogsInfo(t *testing.T) {
	log := &recordingLogger{}
	o := New(log)
	o.WindowCompleted("obj.bin", 4, 10, 50<<20, 8)
	if log.infoCalls != 1 {
		t.Errorf("expected exactly one info log, got %d", log.infoCalls)
	}
}

func TestConsoleObserver_TransferFinishedLogsWarnOnError(t *testing.T) {
	log := &recordingLogger{}
	o := New(log)
	o.TransferFinished("obj.bin", s3copy.NewTransferError("copy", "obj.bin", s3copy.CategoryDenied, s3copy.ErrDenied))
	if log.warnCalls != 1 {
		t.Errorf("expected exactly one warn log on failure, got %d", log.warnCalls)
	}
}

func TestConsoleObserver_TransferFinishedLogsInfoOnSuccess(t *testing.T) {
	log := &recordingLogger{}
	o := New(log)
	o.TransferFinished("obj.bin", nil)
	if log.infoCalls != 1 || log.warnCalls != 0 {
		t.Errorf("expected exactly one info log and no warn log on success, got info=%d warn=%d", log.infoCalls, log.warnCalls)
	}
}

func TestNewWithNilLoggerDoesNotPanic(t *testing.T) {
	o := New(nil)
	o.TransferStarted("k", s3copy.StrategySingleShot, 1)
	o.WindowCompleted("k", 1, 1, 1, 1)
	o.TransferFinished("k", nil)
}

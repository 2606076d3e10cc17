package s3copy

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/gostratum/s3copy/internal/decider"
	"github.com/gostratum/s3copy/internal/executor"
	"github.com/gostratum/s3copy/internal/planner"
	"github.com/gostratum/s3copy/internal/resolver"
	"github.com/gostratum/s3copy/internal/singleshot"
	"github.com/gostratum/s3copy/internal/verify"
)

// CopyRequest bundles one invocation's worth of flags: the coordinates and
// every replication/verification toggle the CLI surface exposes.
type CopyRequest struct {
	Src, Dst Coordinate

	Profile        Profile
	ConcurrencyCap int

	ForceCopy             bool
	NoTags                bool
	NoMetadata            bool
	ReplicateStorageClass bool
	FullControlACL        bool

	StorageClass      string
	SSE               SSEMode
	SSEKMSKeyID       string
	ChecksumAlgorithm ChecksumFamily

	VerifyMode VerifyMode
}

// Orchestrator is C11: it glues the metadata resolution (C2), shortcut
// decision (C3), planning/execution (C4-C6 via the multipart Executor, or C7
// via the single-shot Copier) and post-copy verification (C8) into a single
// invocation. The multipart upload's lifetime (create, abort on failure,
// complete) is owned by the Executor it calls.
type Orchestrator struct {
	gw           Gateway
	instrumenter *Instrumenter
	logger       Logger
	observer     ProgressObserver

	singleshot *singleshot.Copier
	verifier   *verify.Verifier
}

// OrchestratorParams is the fx constructor's dependency set.
type OrchestratorParams struct {
	fx.In

	Gateway      Gateway
	Instrumenter *Instrumenter
	Logger       Logger           `optional:"true"`
	Observer     ProgressObserver `optional:"true"`
}

// NewOrchestrator builds an Orchestrator from its fx-provided dependencies.
func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	logger := params.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	observer := params.Observer
	if observer == nil {
		observer = NewNopProgressObserver()
	}
	return &Orchestrator{
		gw:           params.Gateway,
		instrumenter: params.Instrumenter,
		logger:       logger,
		observer:     observer,
		singleshot:   singleshot.New(params.Gateway, logger),
		verifier:     verify.New(params.Gateway, logger),
	}
}

// Copy drives one src→dst transfer to completion, choosing and executing
// whatever strategy the shortcut decider selects. A non-nil error means the
// transfer did not commit (for Multipart, the upload was aborted first); a
// non-nil TransferResult.VerifyError means the object was committed but
// failed post-copy verification, which is reported, never a cause to abort.
func (o *Orchestrator) Copy(ctx context.Context, req CopyRequest) (TransferResult, error) {
	resolved, err := resolver.Resolve(ctx, o.gw, req.Src, req.Dst, req.ForceCopy)
	if err != nil {
		return TransferResult{}, err
	}

	flags := decider.Flags{
		ForceCopy:        req.ForceCopy,
		NoTags:           req.NoTags,
		NoMetadata:       req.NoMetadata,
		ReplicateStorage: req.ReplicateStorageClass,
		VerifyIntegrity:  req.VerifyMode,
	}
	strategy := decider.Decide(resolved.Source, resolved.Dest, flags)
	o.logger.Info("strategy decided", "key", req.Dst.Key, "strategy", strategy.String())

	if strategy == StrategySkip {
		o.observer.TransferStarted(req.Dst.Key, strategy, resolved.Source.Attributes.Size)
		o.observer.TransferFinished(req.Dst.Key, nil)
		return TransferResult{Strategy: strategy, Destination: resolved.Dest.Attributes}, nil
	}

	opts := ReplicationOptions{
		StorageClass:      req.StorageClass,
		SSE:               req.SSE,
		SSEKMSKeyID:       req.SSEKMSKeyID,
		ChecksumAlgorithm: req.ChecksumAlgorithm,
		ReplicateMetadata: !req.NoMetadata,
		ReplicateTags:     !req.NoTags,
		FullControlACL:    req.FullControlACL,
	}

	var (
		destAttrs Attributes
		parts     []PartRecord
	)

	switch strategy {
	case StrategyTagOnly, StrategyPropertyCopy, StrategySingleShot:
		o.observer.TransferStarted(req.Dst.Key, strategy, resolved.Source.Attributes.Size)
		destAttrs, err = o.singleshot.Copy(ctx, strategy, req.Src, req.Dst, resolved.Source.Attributes, opts)
		o.observer.TransferFinished(req.Dst.Key, err)

	case StrategyMultipart:
		opts.MetadataDirective = MetadataDirectiveReplace
		opts.Metadata = BuildReplicationMetadata(resolved.Source.Attributes, opts.ReplicateMetadata)

		plan := planner.Plan(resolved.Source.Attributes.Size, resolved.SameRegion, req.Profile, req.ConcurrencyCap)
		exec := executor.New(o.gw, o.instrumenter, o.logger, req.Src, req.Dst, opts).WithObserver(o.observer)
		destAttrs, parts, err = exec.Run(ctx, plan)

	default:
		err = NewTransferError("copy", req.Dst.Key, CategoryInternal, fmt.Errorf("decider produced an unhandled strategy %v", strategy))
	}
	if err != nil {
		return TransferResult{}, err
	}

	result := TransferResult{Strategy: strategy, Destination: destAttrs, Parts: parts}

	if req.VerifyMode != VerifyOff {
		if verifyErr := o.verifier.Verify(ctx, req.VerifyMode, req.Src, resolved.Source.Attributes, req.Dst); verifyErr != nil {
			result.VerifyError = verifyErr
			o.logger.Warn("post-copy verification failed", "key", req.Dst.Key, "error", verifyErr)
		}
	}

	return result, nil
}

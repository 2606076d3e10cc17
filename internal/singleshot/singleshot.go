// Package singleshot implements C7: the single-operation copy paths
// (SingleShot, PropertyCopy, TagOnly) the shortcut decider routes objects
// under the multipart threshold into.
package singleshot

import (
	"context"

	"github.com/gostratum/s3copy"
)

// Copier drives the three single-request strategies against a Gateway.
type Copier struct {
	gw     s3copy.Gateway
	logger s3copy.Logger
}

// New builds a Copier.
func New(gw s3copy.Gateway, logger s3copy.Logger) *Copier {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	return &Copier{gw: gw, logger: logger}
}

// Copy executes strategy for src→dst and returns the destination's resulting
// attributes. strategy must be one of StrategySingleShot, StrategyPropertyCopy
// or StrategyTagOnly; any other value is a programmer error.
func (c *Copier) Copy(ctx context.Context, strategy s3copy.Strategy, src, dst s3copy.Coordinate, srcAttrs s3copy.Attributes, opts s3copy.ReplicationOptions) (s3copy.Attributes, error) {
	switch strategy {
	case s3copy.StrategySingleShot:
		return c.copyWithIdentity(ctx, src, dst, srcAttrs, opts)
	case s3copy.StrategyPropertyCopy:
		return c.copyWithIdentity(ctx, src, dst, srcAttrs, opts)
	case s3copy.StrategyTagOnly:
		return c.tagOnly(ctx, dst, srcAttrs)
	default:
		return s3copy.Attributes{}, s3copy.NewTransferError("copy", dst.Key, s3copy.CategoryInternal, s3copy.ErrInvalidPlan)
	}
}

// copyWithIdentity backs both SingleShot and PropertyCopy: a single
// copy_single call with the REPLACE directive, carrying whatever source
// metadata ReplicateMetadata calls for plus the persistent source-etag
// identity tag. REPLACE is required in both cases: SingleShot needs the
// identity tag injected (the source never has it), and PropertyCopy exists
// specifically to refresh headers a plain COPY directive would leave
// untouched.
func (c *Copier) copyWithIdentity(ctx context.Context, src, dst s3copy.Coordinate, srcAttrs s3copy.Attributes, opts s3copy.ReplicationOptions) (s3copy.Attributes, error) {
	opts.MetadataDirective = s3copy.MetadataDirectiveReplace
	opts.Metadata = s3copy.BuildReplicationMetadata(srcAttrs, opts.ReplicateMetadata)

	attrs, err := c.gw.CopySingle(ctx, src, dst, srcAttrs.Size, opts)
	if err != nil {
		return s3copy.Attributes{}, err
	}

	if opts.ReplicateTags {
		if err := c.gw.PutTags(ctx, dst, srcAttrs.Tags); err != nil {
			return s3copy.Attributes{}, err
		}
	}

	c.logger.Info("single-operation copy complete", "key", dst.Key, "size", srcAttrs.Size)
	return attrs, nil
}

// tagOnly updates only the destination's tag set, leaving its body and
// metadata untouched.
func (c *Copier) tagOnly(ctx context.Context, dst s3copy.Coordinate, srcAttrs s3copy.Attributes) (s3copy.Attributes, error) {
	if err := c.gw.PutTags(ctx, dst, srcAttrs.Tags); err != nil {
		return s3copy.Attributes{}, err
	}

	head, err := c.gw.Head(ctx, dst)
	if err != nil {
		return s3copy.Attributes{}, err
	}

	c.logger.Info("tag-only update complete", "key", dst.Key)
	return head.Attributes, nil
}

// Package verify implements the post-copy verifier (C8): an optional check
// run after a successful copy, never itself a cause for abort.
package verify

import (
	"context"
	"fmt"

	"github.com/gostratum/s3copy"
)

// Verifier re-heads the destination and compares it against the source's
// attributes per the configured mode.
type Verifier struct {
	gw     s3copy.Gateway
	logger s3copy.Logger
}

// New builds a Verifier.
func New(gw s3copy.Gateway, logger s3copy.Logger) *Verifier {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	return &Verifier{gw: gw, logger: logger}
}

// Verify checks dst against src per mode. It returns a non-nil error only to
// report verification failure or an inability to complete the check; callers
// must not treat a non-nil return as cause to abort an already-committed
// transfer.
func (v *Verifier) Verify(ctx context.Context, mode s3copy.VerifyMode, src s3copy.Coordinate, srcAttrs s3copy.Attributes, dst s3copy.Coordinate) error {
	if mode == s3copy.VerifyOff {
		return nil
	}

	head, err := v.gw.Head(ctx, dst)
	if err != nil {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed, err)
	}
	if !head.Found {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("destination object disappeared before verification"))
	}

	switch mode {
	case s3copy.VerifyETag:
		return v.verifyETag(dst, srcAttrs, head.Attributes)
	case s3copy.VerifyChecksum:
		return v.verifyChecksum(dst, srcAttrs, head.Attributes)
	default:
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryInternal,
			fmt.Errorf("unknown verify mode %q", mode))
	}
}

// verifyETag requires matching sizes and a persistent source-etag identity
// tag equal to the source's entity tag. The destination's own raw ETag is
// never compared directly: multipart ETags are not portable across
// single-shot/multipart representations, so the identity tag is the only
// cross-representation signal.
func (v *Verifier) verifyETag(dst s3copy.Coordinate, srcAttrs, dstAttrs s3copy.Attributes) error {
	if dstAttrs.Size != srcAttrs.Size {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("size mismatch: source %d, destination %d", srcAttrs.Size, dstAttrs.Size))
	}

	identity, ok := dstAttrs.SourceEtag()
	if !ok {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("destination is missing the %s identity tag", s3copy.SourceEtagTagKey))
	}
	if identity != srcAttrs.ETag {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("identity tag %q does not match source etag %q", identity, srcAttrs.ETag))
	}

	v.logger.Debug("etag verification passed", "key", dst.Key)
	return nil
}

// verifyChecksum requires a checksum family present on both sides and
// compares the values directly; it fails outright if either side lacks one.
func (v *Verifier) verifyChecksum(dst s3copy.Coordinate, srcAttrs, dstAttrs s3copy.Attributes) error {
	if srcAttrs.ChecksumFamily == s3copy.ChecksumNone {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("source object has no checksum to verify against"))
	}
	if dstAttrs.ChecksumFamily == s3copy.ChecksumNone {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("destination object has no checksum to verify against"))
	}
	if srcAttrs.ChecksumFamily != dstAttrs.ChecksumFamily {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("checksum family mismatch: source %s, destination %s", srcAttrs.ChecksumFamily, dstAttrs.ChecksumFamily))
	}
	if srcAttrs.ChecksumValue != dstAttrs.ChecksumValue {
		return s3copy.NewTransferError("verify", dst.Key, s3copy.CategoryVerificationFailed,
			fmt.Errorf("%s checksum mismatch: source %s, destination %s", srcAttrs.ChecksumFamily, srcAttrs.ChecksumValue, dstAttrs.ChecksumValue))
	}

	v.logger.Debug("checksum verification passed", "key", dst.Key, "family", string(srcAttrs.ChecksumFamily))
	return nil
}

package s3copy

import "context"

// HeadResult is the outcome of a head(object) call (C1 §4.1). A missing
// object is reported as Found: false with a nil error; Denied is reported
// as an error categorized CategoryDenied. When Found is true, Attributes
// carries the resolved attributes.
type HeadResult struct {
	Found      bool
	Attributes Attributes
}

// Gateway is the thin, uniform façade over the provider API operations the
// core needs (C1). Every method maps provider errors into the taxonomy of
// errors.go via CategoryOf/IsTransient before returning.
//
// Implementations retry Transient and SlowDown categories internally with
// exponential backoff and jitter up to a bounded attempt count; Denied,
// NotFound and UserInput categories fail fast. A SlowDown that survives
// retries is still returned to the caller so the executor can react (§4.6).
type Gateway interface {
	// Head fetches an object's attributes, or HeadResult{Found: false} if the
	// object does not exist. A Denied error is returned unchanged; it is
	// never folded into Found: false.
	Head(ctx context.Context, obj Coordinate) (HeadResult, error)

	// HeadBucketRegion resolves the region a bucket lives in via a
	// bucket-location probe.
	HeadBucketRegion(ctx context.Context, bucket string) (string, error)

	// GetTags fetches an object's tag set.
	GetTags(ctx context.Context, obj Coordinate) (map[string]string, error)

	// PutTags replaces an object's tag set wholesale.
	PutTags(ctx context.Context, obj Coordinate, tags map[string]string) error

	// CopySingle performs a single-operation server-side copy. It fails with
	// CategoryInvalidPlan if srcSize exceeds MaxSingleShotSize.
	CopySingle(ctx context.Context, src, dst Coordinate, srcSize int64, opts ReplicationOptions) (Attributes, error)

	// CreateMultipart initiates a multipart upload session on dst and
	// returns its upload id.
	CreateMultipart(ctx context.Context, dst Coordinate, opts ReplicationOptions) (uploadID string, err error)

	// CopyPart issues one server-side copy-part request. byteRangeStart and
	// byteRangeEnd are the source's [start, end) range for this part.
	CopyPart(ctx context.Context, uploadID string, partNumber int32, src, dst Coordinate, byteRangeStart, byteRangeEnd int64) (partETag string, err error)

	// CompleteMultipart finalizes an upload given part records already
	// sorted by ascending part number.
	CompleteMultipart(ctx context.Context, dst Coordinate, uploadID string, parts []PartRecord) (Attributes, error)

	// AbortMultipart cancels an upload. It is idempotent from the caller's
	// perspective: aborting an already-aborted or already-completed upload
	// must not be treated as a fatal error by callers.
	AbortMultipart(ctx context.Context, dst Coordinate, uploadID string) error
}

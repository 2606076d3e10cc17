// Package s3copy implements an adaptive multipart object copy engine between
// two buckets of an S3-compatible object store.
//
// The package exposes the domain types and the decision/planning/execution
// pipeline that a CLI entrypoint (see cmd/s3copy) wires together with
// concrete gateway, logging and observability implementations. Concrete
// provider mechanics live under internal/ so that only the stable pipeline
// surface is importable from outside this module.
package s3copy

import "time"

// Coordinate identifies an object within a bucket, with an optional region
// hint. Region is resolved lazily via a bucket-location probe when absent.
type Coordinate struct {
	Bucket string
	Key    string
	Region string
}

// SourceEtagTagKey is the user-metadata key used to persist the source
// object's entity tag on the destination object. Server-side entity tags of
// multipart objects depend on part layout and are therefore not portable
// across representations; this tag is the only cross-path identity signal.
const SourceEtagTagKey = "source-etag"

// ChecksumFamily names a supported per-object checksum algorithm.
type ChecksumFamily string

const (
	ChecksumNone   ChecksumFamily = ""
	ChecksumCRC32  ChecksumFamily = "CRC32"
	ChecksumCRC32C ChecksumFamily = "CRC32C"
	ChecksumSHA1   ChecksumFamily = "SHA1"
	ChecksumSHA256 ChecksumFamily = "SHA256"
)

// Attributes is the shape shared by SourceAttributes and DestAttributes.
type Attributes struct {
	Size               int64
	ETag               string
	ContentType        string
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	Metadata           map[string]string
	Tags               map[string]string
	StorageClass       string
	ChecksumFamily     ChecksumFamily
	ChecksumValue      string
	Region             string
	LastModified       time.Time
}

// SourceAttributes is read once at entry and treated as immutable for the
// remainder of a single invocation.
type SourceAttributes = Attributes

// DestAttributes is read once unless ForceCopy is set, in which case it is
// never read at all and the shortcut decider always yields FullCopy.
type DestAttributes = Attributes

// SourceEtag returns the persistent identity tag recorded on a destination's
// attributes, and whether it was present.
func (a Attributes) SourceEtag() (string, bool) {
	v, ok := a.Metadata[SourceEtagTagKey]
	return v, ok
}

// BuildReplicationMetadata assembles the destination user-metadata map a
// REPLACE-directive copy writes: srcAttrs' own metadata when replicateSource
// is true, plus the persistent SourceEtagTagKey identity tag unconditionally.
// Both internal/singleshot and the orchestrator's multipart path use this so
// the identity tag is stamped identically regardless of which path a
// transfer takes.
func BuildReplicationMetadata(srcAttrs Attributes, replicateSource bool) map[string]string {
	out := map[string]string{}
	if replicateSource {
		for k, v := range srcAttrs.Metadata {
			out[k] = v
		}
	}
	out[SourceEtagTagKey] = srcAttrs.ETag
	return out
}

// Strategy is the shortcut decider's (C3) and planner's (C4) output.
type Strategy int

const (
	StrategySkip Strategy = iota
	StrategyPropertyCopy
	StrategyTagOnly
	StrategySingleShot
	StrategyMultipart
)

func (s Strategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyPropertyCopy:
		return "property-copy"
	case StrategyTagOnly:
		return "tag-only"
	case StrategySingleShot:
		return "single-shot"
	case StrategyMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// Profile names a bundle of auto-planner preferences.
type Profile string

const (
	ProfileBalanced      Profile = "balanced"
	ProfileAggressive    Profile = "aggressive"
	ProfileConservative  Profile = "conservative"
	ProfileCostEfficient Profile = "cost-efficient"
)

// Bound limits from spec.md §3 invariant 1 and §4.4/§6.1.
const (
	MinPartSizeBytes  int64 = 5 << 20   // 5 MiB
	MaxPartSizeBytes  int64 = 5 << 30   // 5 GiB
	MaxSingleShotSize int64 = 5 << 30   // 5 GiB, same bound as MaxPartSizeBytes
	MaxPartCount            = 10_000
	MaxConcurrencyCap       = 1000
)

// TransferPlan is produced by the auto planner (C4), refined by the
// cost-aware floor (C5), and consumed by the multipart executor (C6) and the
// cost estimator (C9).
type TransferPlan struct {
	Strategy Strategy

	// The following fields are meaningful only when Strategy == StrategyMultipart.
	PartSizeBytes       int64
	InitialConcurrency  int
	MaxConcurrency      int
	ProbePartCount      int
	WindowSize          int
	Profile             Profile
	SameRegion          bool
	Size                int64
}

// PartCount returns ceil(Size / PartSizeBytes), the number of parts this plan
// lays the object out into.
func (p TransferPlan) PartCount() int {
	if p.PartSizeBytes <= 0 {
		return 0
	}
	return int(ceilDiv(p.Size, p.PartSizeBytes))
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// PartRecord is appended once per successful part and is immutable
// thereafter. Records are sorted by PartNumber before being submitted to
// complete_multipart; completion order of the underlying requests is
// unconstrained.
type PartRecord struct {
	PartNumber int32
	ETag       string
	Size       int64
	RangeStart int64
	RangeEnd   int64 // exclusive
}

// PartLayout computes the contiguous byte range [start, end) for part number
// n (1-based) given a part size and total object size, per spec.md §4.6's
// ordering rules.
func PartLayout(partNumber int32, partSizeBytes, totalSize int64) (start, end int64) {
	start = int64(partNumber-1) * partSizeBytes
	end = start + partSizeBytes
	if end > totalSize {
		end = totalSize
	}
	return start, end
}

// ReplicationOptions is the configuration record consulted by the gateway's
// copy operations (C1 §4.1) and by the single-shot copier (C7).
type ReplicationOptions struct {
	StorageClass      string // "" means inherit
	SSE               SSEMode
	SSEKMSKeyID       string
	ChecksumAlgorithm ChecksumFamily
	ReplicateMetadata bool
	ReplicateTags     bool
	FullControlACL    bool
	MetadataDirective MetadataDirective

	// Metadata is the exact user-metadata map to write to the destination
	// when MetadataDirective is Replace: a copy_single call applies it
	// verbatim, and create_multipart seeds the eventual object with it. It
	// is the caller's responsibility to fold in SourceEtagTagKey and any
	// replicated source metadata before passing this down; the gateway
	// writes whatever it is given without interpretation.
	Metadata map[string]string
}

// SSEMode names a server-side encryption mode.
type SSEMode string

const (
	SSENone            SSEMode = "none"
	SSEProviderManaged SSEMode = "provider-managed"
	SSEKMS             SSEMode = "kms"
)

// MetadataDirective controls whether copy_single carries over or replaces
// headers/metadata on the destination.
type MetadataDirective string

const (
	MetadataDirectiveCopy    MetadataDirective = "copy"
	MetadataDirectiveReplace MetadataDirective = "replace"
)

// VerifyMode selects the post-copy verification strategy (C8).
type VerifyMode string

const (
	VerifyOff      VerifyMode = "off"
	VerifyETag     VerifyMode = "etag"
	VerifyChecksum VerifyMode = "checksum"
)

// ExecutorState names a state in the multipart executor's state machine
// (spec.md §4.6).
type ExecutorState int

const (
	StateInit ExecutorState = iota
	StateOpen
	StateProbed
	StateRunning
	StateAborting
	StateDone
	StateFailed
)

func (s ExecutorState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateOpen:
		return "OPEN"
	case StateProbed:
		return "PROBED"
	case StateRunning:
		return "RUNNING"
	case StateAborting:
		return "ABORTING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TransferResult is the orchestrator's (C11) terminal output.
type TransferResult struct {
	Strategy    Strategy
	Destination Attributes
	Parts       []PartRecord
	VerifyError error // non-nil only when verification ran and failed
}

// PricingRateKind names a rate looked up in a PricingRecord (C9, spec.md §6.3).
type PricingRateKind string

const (
	RatePutCopyRequestPer1000 PricingRateKind = "put-copy-request-per-1000"
	RateGetHeadRequestPer1000 PricingRateKind = "get-head-request-per-1000"
	RateDataOutPerGiB         PricingRateKind = "data-out-per-gib"
	RateStoragePerGiBMonth    PricingRateKind = "storage-per-gib-month"
)

// PricingRecord maps (region, rate-kind[, storage-class-or-destination-region])
// to a cents value. Retrieval of the record is an external collaborator's
// concern (spec.md §6.3); this type only describes the shape C9 consumes.
type PricingRecord struct {
	Region       string
	Rates        map[PricingRateKind]float64
	DestRegion   map[string]float64 // data-out-per-gib, keyed by destination region
	StorageClass map[string]float64 // storage-per-gib-month, keyed by storage class
}

// CostEstimate is C9's report.
type CostEstimate struct {
	Strategy         Strategy
	CopyPartRequests int
	// CreateCompletePairs counts create_multipart/complete_multipart pairs,
	// one per multipart upload (always 1 for a single-object estimate); the
	// request count this contributes is 2*CreateCompletePairs.
	CreateCompletePairs   int
	HeadRequests          int
	CrossRegionBytes      int64
	MonthlyStorageCents   float64
	EstimatedRequestCents float64
}

// CreateCompleteRequests returns the individual create_multipart plus
// complete_multipart request count represented by CreateCompletePairs.
func (e CostEstimate) CreateCompleteRequests() int {
	return 2 * e.CreateCompletePairs
}

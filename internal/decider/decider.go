// Package decider implements the shortcut decision table (C3): given a
// resolved source/destination pair and replication flags, decide whether a
// transfer can be skipped, shortcut to a tag-only or property-only mutation,
// or requires a full copy.
package decider

import (
	"github.com/gostratum/s3copy"
)

// Flags carries the replication toggles the decision table consults.
type Flags struct {
	ForceCopy         bool
	NoTags            bool
	NoMetadata        bool
	ReplicateStorage  bool
	VerifyIntegrity   s3copy.VerifyMode
}

// Decide implements spec.md §4.3's decision table. src must be Found; dst
// may be either.
func Decide(src, dst s3copy.HeadResult, flags Flags) s3copy.Strategy {
	if flags.ForceCopy {
		return fullCopyStrategy(src.Attributes.Size)
	}
	if !dst.Found {
		return fullCopyStrategy(src.Attributes.Size)
	}
	if dst.Attributes.Size != src.Attributes.Size {
		return fullCopyStrategy(src.Attributes.Size)
	}

	sourceEtag, hasIdentity := dst.Attributes.SourceEtag()
	if !hasIdentity || sourceEtag != src.Attributes.ETag {
		return fullCopyStrategy(src.Attributes.Size)
	}

	propertiesMatch := propertiesEqual(src.Attributes, dst.Attributes, flags)
	tagsMatch := flags.NoTags || tagsEqual(src.Attributes.Tags, dst.Attributes.Tags)

	switch {
	case propertiesMatch && tagsMatch:
		return s3copy.StrategySkip
	case propertiesMatch && !tagsMatch:
		return s3copy.StrategyTagOnly
	case src.Attributes.Size <= s3copy.MaxSingleShotSize:
		return s3copy.StrategyPropertyCopy
	default:
		return s3copy.StrategyMultipart
	}
}

func fullCopyStrategy(size int64) s3copy.Strategy {
	if size <= s3copy.MaxSingleShotSize {
		return s3copy.StrategySingleShot
	}
	return s3copy.StrategyMultipart
}

func propertiesEqual(src, dst s3copy.Attributes, flags Flags) bool {
	if src.ContentType != dst.ContentType {
		return false
	}
	if src.CacheControl != dst.CacheControl {
		return false
	}
	if !flags.NoMetadata && !metadataEqualExcludingIdentity(src.Metadata, dst.Metadata) {
		return false
	}
	if flags.ReplicateStorage && src.StorageClass != dst.StorageClass {
		return false
	}
	if flags.VerifyIntegrity == s3copy.VerifyChecksum && src.ChecksumValue != dst.ChecksumValue {
		return false
	}
	return true
}

func metadataEqualExcludingIdentity(src, dst map[string]string) bool {
	for k, v := range src {
		if k == s3copy.SourceEtagTagKey {
			continue
		}
		if dst[k] != v {
			return false
		}
	}
	for k := range dst {
		if k == s3copy.SourceEtagTagKey {
			continue
		}
		if _, ok := src[k]; !ok {
			return false
		}
	}
	return true
}

func tagsEqual(src, dst map[string]string) bool {
	if len(src) != len(dst) {
		return false
	}
	for k, v := range src {
		if dst[k] != v {
			return false
		}
	}
	return true
}

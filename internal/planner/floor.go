package planner

import "github.com/gostratum/s3copy"

// ApplyFloor implements C5: doubles partSize while the resulting part count
// for size exceeds targetMaxParts and partSize is still under the 5 GiB
// ceiling, then applies a hard final check raising partSize further if
// needed so the part count never exceeds s3copy.MaxPartCount. The hard check
// always wins over the profile's target, per spec.md §4.5.
func ApplyFloor(size, partSize int64, targetMaxParts int) int64 {
	if partSize <= 0 {
		partSize = s3copy.MinPartSizeBytes
	}

	for ceilDiv(size, partSize) > int64(targetMaxParts) && partSize < s3copy.MaxPartSizeBytes {
		partSize *= 2
	}
	if partSize > s3copy.MaxPartSizeBytes {
		partSize = s3copy.MaxPartSizeBytes
	}

	for ceilDiv(size, partSize) > int64(s3copy.MaxPartCount) && partSize < s3copy.MaxPartSizeBytes {
		partSize *= 2
	}
	if partSize > s3copy.MaxPartSizeBytes {
		partSize = s3copy.MaxPartSizeBytes
	}

	return partSize
}

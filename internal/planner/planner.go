// Package planner implements the auto planner (C4) and its cost-aware floor
// (C5): turning an object size, region locality and profile preference into
// a concrete TransferPlan.
package planner

import (
	"github.com/gostratum/s3copy"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30
)

// profileParams is one row of spec.md §4.4's profile table.
type profileParams struct {
	targetPartCount    int
	initialPartSize    func(size int64) int64
	initialConcurrency func(userCap int) int
	maxConcurrency     func(userCap int) int
}

var profileTable = map[s3copy.Profile]profileParams{
	s3copy.ProfileAggressive: {
		targetPartCount: 8192,
		initialPartSize: func(size int64) int64 {
			return clamp(minInt64(256*mib, size/1024), s3copy.MinPartSizeBytes, s3copy.MaxPartSizeBytes)
		},
		initialConcurrency: func(userCap int) int { return minInt(userCap, 64) },
		maxConcurrency:     func(userCap int) int { return minInt(userCap, 200) },
	},
	s3copy.ProfileBalanced: {
		targetPartCount: 4096,
		initialPartSize: func(size int64) int64 {
			return clamp(256*mib, s3copy.MinPartSizeBytes, s3copy.MaxPartSizeBytes)
		},
		initialConcurrency: func(userCap int) int { return minInt(userCap, 32) },
		maxConcurrency:     func(userCap int) int { return minInt(userCap, 100) },
	},
	s3copy.ProfileConservative: {
		targetPartCount: 1000,
		initialPartSize: func(size int64) int64 {
			return clamp(maxInt64(256*mib, size/800), s3copy.MinPartSizeBytes, s3copy.MaxPartSizeBytes)
		},
		initialConcurrency: func(userCap int) int { return minInt(userCap, 16) },
		maxConcurrency:     func(userCap int) int { return minInt(userCap, 50) },
	},
	s3copy.ProfileCostEfficient: {
		targetPartCount: 500,
		initialPartSize: func(size int64) int64 {
			target := int64(500)
			return clamp(maxInt64(size/target, 512*mib), s3copy.MinPartSizeBytes, s3copy.MaxPartSizeBytes)
		},
		initialConcurrency: func(userCap int) int { return minInt(userCap, 8) },
		maxConcurrency:     func(userCap int) int { return minInt(userCap, 32) },
	},
}

// Plan builds a TransferPlan per spec.md §4.4/§4.5. size is the source
// object's byte size; sameRegion is whether src and dst resolve to the same
// AWS region; userConcurrencyCap is the hard operator-supplied ceiling.
func Plan(size int64, sameRegion bool, profile s3copy.Profile, userConcurrencyCap int) s3copy.TransferPlan {
	if size <= s3copy.MaxSingleShotSize {
		return s3copy.TransferPlan{Strategy: s3copy.StrategySingleShot, Size: size, SameRegion: sameRegion, Profile: profile}
	}

	params, ok := profileTable[profile]
	if !ok {
		params = profileTable[s3copy.ProfileBalanced]
		profile = s3copy.ProfileBalanced
	}

	targetPartCount := params.targetPartCount
	partSize := params.initialPartSize(size)
	initialConcurrency := params.initialConcurrency(userConcurrencyCap)
	maxConcurrency := params.maxConcurrency(userConcurrencyCap)

	if !sameRegion {
		targetPartCount = int(float64(targetPartCount) * 0.75)
		if targetPartCount < 1 {
			targetPartCount = 1
		}
		initialConcurrency *= 2
		if initialConcurrency > userConcurrencyCap {
			initialConcurrency = userConcurrencyCap
		}
	}

	partSize = ApplyFloor(size, partSize, targetPartCount)

	probePartCount := minInt(8, int(ceilDiv(size, partSize)))
	windowSize := maxInt(2*initialConcurrency, 16)

	return s3copy.TransferPlan{
		Strategy:           s3copy.StrategyMultipart,
		PartSizeBytes:      partSize,
		InitialConcurrency: initialConcurrency,
		MaxConcurrency:     maxConcurrency,
		ProbePartCount:     probePartCount,
		WindowSize:         windowSize,
		Profile:            profile,
		SameRegion:         sameRegion,
		Size:               size,
	}
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

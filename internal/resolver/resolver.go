// Package resolver implements the metadata resolution step (C2): a parallel
// head of the source and destination objects, plus region resolution for
// whichever side the caller didn't already pin to a region.
package resolver

import (
	"context"
	"errors"

	"github.com/gostratum/s3copy"
)

// Resolved is the normalized outcome of resolving a source/destination pair.
// Dest is the zero value with Found == false when the destination object
// does not exist yet.
type Resolved struct {
	Source s3copy.HeadResult
	Dest   s3copy.HeadResult

	// SrcRegion and DestRegion are the regions resolved for each side (the
	// caller-supplied Coordinate.Region when set, otherwise the result of a
	// bucket-location probe). SameRegion is their equality, which the
	// planner needs to pick a profile's cross-region adjustments.
	SrcRegion  string
	DestRegion string
	SameRegion bool
}

// Resolve performs a parallel head of src and dst (skipping the destination
// head when forceCopy is set, since its attributes will never be consulted),
// resolving each coordinate's region via a bucket-location probe first when
// its Region field is empty.
func Resolve(ctx context.Context, gw s3copy.Gateway, src, dst s3copy.Coordinate, forceCopy bool) (Resolved, error) {
	src, err := resolveRegion(ctx, gw, src)
	if err != nil {
		return Resolved{}, err
	}
	dst, err = resolveRegion(ctx, gw, dst)
	if err != nil {
		return Resolved{}, err
	}

	type headOutcome struct {
		result s3copy.HeadResult
		err    error
	}

	srcCh := make(chan headOutcome, 1)
	go func() {
		result, err := gw.Head(ctx, src)
		srcCh <- headOutcome{result, err}
	}()

	var dstOutcome headOutcome
	if forceCopy {
		dstOutcome = headOutcome{s3copy.HeadResult{Found: false}, nil}
	} else {
		dstCh := make(chan headOutcome, 1)
		go func() {
			result, err := gw.Head(ctx, dst)
			dstCh <- headOutcome{result, err}
		}()
		dstOutcome = <-dstCh
	}

	srcOutcome := <-srcCh

	if srcOutcome.err != nil {
		if s3copy.CategoryOf(srcOutcome.err) == s3copy.CategoryNotFound {
			return Resolved{}, s3copy.NewTransferError("head", src.Key, s3copy.CategoryNotFound, s3copy.ErrSourceMissing)
		}
		return Resolved{}, srcOutcome.err
	}
	if !srcOutcome.result.Found {
		return Resolved{}, s3copy.NewTransferError("head", src.Key, s3copy.CategoryNotFound, s3copy.ErrSourceMissing)
	}

	if dstOutcome.err != nil && s3copy.CategoryOf(dstOutcome.err) != s3copy.CategoryNotFound {
		return Resolved{}, dstOutcome.err
	}

	return Resolved{
		Source:     srcOutcome.result,
		Dest:       dstOutcome.result,
		SrcRegion:  src.Region,
		DestRegion: dst.Region,
		SameRegion: src.Region == dst.Region,
	}, nil
}

func resolveRegion(ctx context.Context, gw s3copy.Gateway, c s3copy.Coordinate) (s3copy.Coordinate, error) {
	if c.Region != "" {
		return c, nil
	}
	region, err := gw.HeadBucketRegion(ctx, c.Bucket)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c, err
		}
		return c, err
	}
	c.Region = region
	return c, nil
}

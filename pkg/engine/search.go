package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/webpress/webpress/pkg/encoder"
)

// plateauRun is the number of consecutive probes returning an identical size
// after which the search stops early. Flat-color images can plateau where
// quality no longer moves the encoded size, which would waste the remaining
// probes of the domain.
const plateauRun = 3

type candidate struct {
	data    []byte
	quality int
}

// FindQuality binary-searches the quality domain for the highest quality whose
// encoded size fits under targetBytes.
//
// Precondition: encoded size is non-decreasing in quality for the given
// buffer. The search maintains `low` as one above the highest quality known
// to fit and `high` as one below the lowest quality known to exceed the
// budget, and terminates when the interval empties. When no probed quality
// fits, the smallest encode observed across the search is returned with
// TargetMet false rather than an error, since a byte budget may be
// physically unreachable.
func FindQuality(ctx context.Context, enc encoder.Encoder, buffer image.Image, targetBytes int, bounds SearchBounds) (*EncodeResult, error) {
	bounds = bounds.withDefaults()
	low, high := bounds.Min, bounds.Max

	var best *candidate     // highest quality observed at or under the target
	var smallest *candidate // fallback when nothing fits
	iterations := 0
	lastSize := -1
	run := 0

	for low <= high {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mid := (low + high) / 2
		data, err := enc.Encode(buffer, mid)
		if err != nil {
			return nil, &EncodeFailureError{Quality: mid, Err: err}
		}
		iterations++

		probe := &candidate{data: data, quality: mid}
		if smallest == nil || len(data) < len(smallest.data) ||
			(len(data) == len(smallest.data) && mid > smallest.quality) {
			smallest = probe
		}

		if len(data) <= targetBytes {
			if best == nil || mid > best.quality {
				best = probe
			}
			low = mid + 1
		} else {
			high = mid - 1
		}

		if len(data) == lastSize {
			run++
		} else {
			lastSize = len(data)
			run = 1
		}
		if run >= plateauRun {
			break
		}
	}

	if smallest == nil {
		return nil, fmt.Errorf("empty quality domain [%d, %d]", bounds.Min, bounds.Max)
	}

	chosen := best
	targetMet := true
	if chosen == nil {
		chosen = smallest
		targetMet = false
	}

	return &EncodeResult{
		Data:       chosen.data,
		Size:       len(chosen.data),
		Quality:    chosen.quality,
		Iterations: iterations,
		TargetMet:  targetMet,
	}, nil
}

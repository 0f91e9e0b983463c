// Package engine implements the size-targeting WebP compression core: it
// derives independently dimensioned variants from a decoded source image,
// resolves transparency, and binary-searches the encoder quality to meet a
// per-variant byte budget.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/webpress/webpress/pkg/encoder"
)

// shrink factors tried, in percent, when a budget is unreachable at any
// quality and the variant allows dimension reduction.
const (
	shrinkStartPct = 80
	shrinkFloorPct = 30
	shrinkStepPct  = 10
)

// Engine drives the compression pipeline. It holds no mutable state beyond
// its encoder and is safe for concurrent use.
type Engine struct {
	enc encoder.Encoder
}

func New(enc encoder.Encoder) *Engine {
	return &Engine{enc: enc}
}

// Compress produces one size-targeted WebP encode per variant spec.
//
// Variants are processed by a bounded worker pool; they share no mutable
// state, so one variant's encode failure does not abort its siblings. The
// returned map holds the successful results and the returned error joins the
// per-variant failures, allowing partial success.
func (e *Engine) Compress(ctx context.Context, src *SourceImage, specs []VariantSpec, transparency Transparency) (map[string]*EncodeResult, error) {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	buffers, err := Generate(src, specs)
	if err != nil {
		return nil, err
	}

	maxWorkers := runtime.NumCPU()
	guard := make(chan struct{}, maxWorkers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]*EncodeResult, len(specs))
	var errList []error

	for _, spec := range specs {
		wg.Add(1)
		go func(spec VariantSpec, buffer image.Image) {
			defer wg.Done()
			guard <- struct{}{}
			defer func() { <-guard }()

			result, err := e.compressVariant(ctx, buffer, spec, transparency)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errList = append(errList, err)
				return
			}
			results[spec.Name] = result
		}(spec, buffers[spec.Name])
	}
	wg.Wait()

	return results, errors.Join(errList...)
}

func (e *Engine) compressVariant(ctx context.Context, buffer image.Image, spec VariantSpec, transparency Transparency) (*EncodeResult, error) {
	prepared := Resolve(buffer, transparency.Policy, transparency.background())

	result, err := FindQuality(ctx, e.enc, prepared, spec.TargetBytes, spec.searchBounds())
	if err != nil {
		var failure *EncodeFailureError
		if errors.As(err, &failure) {
			failure.Variant = spec.Name
		}
		return nil, fmt.Errorf("variant %q: %w", spec.Name, err)
	}

	bounds := prepared.Bounds()
	result.Name = spec.Name
	result.Width = bounds.Dx()
	result.Height = bounds.Dy()
	result.HasAlpha = transparency.Policy == Preserve && HasAlpha(prepared)

	if !result.TargetMet && spec.ShrinkToFit {
		result = e.shrinkToFit(ctx, prepared, spec, result)
	}

	log.Debug().
		Str("variant", spec.Name).
		Int("quality", result.Quality).
		Int("size", result.Size).
		Int("target", spec.TargetBytes).
		Int("iterations", result.Iterations).
		Bool("target_met", result.TargetMet).
		Msg("Variant compressed")

	return result, nil
}

// shrinkToFit progressively reduces the variant's dimensions, re-encoding at
// the best quality the search found, until the budget is met or the scale
// floor is reached. The best-effort result from the search is kept when no
// reduced encode fits.
func (e *Engine) shrinkToFit(ctx context.Context, prepared image.Image, spec VariantSpec, base *EncodeResult) *EncodeResult {
	bounds := prepared.Bounds()

	for pct := shrinkStartPct; pct >= shrinkFloorPct; pct -= shrinkStepPct {
		if ctx.Err() != nil {
			return base
		}

		width := max(bounds.Dx()*pct/100, 1)
		height := max(bounds.Dy()*pct/100, 1)
		reduced := imaging.Resize(prepared, width, height, imaging.Lanczos)

		data, err := e.enc.Encode(reduced, base.Quality)
		if err != nil {
			return base
		}
		base.Iterations++

		if len(data) <= spec.TargetBytes {
			return &EncodeResult{
				Name:       spec.Name,
				Data:       data,
				Size:       len(data),
				Quality:    base.Quality,
				Iterations: base.Iterations,
				TargetMet:  true,
				Width:      width,
				Height:     height,
				HasAlpha:   base.HasAlpha,
			}
		}
	}

	return base
}

package utils

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/webpress/webpress/internal/report"
	"github.com/webpress/webpress/internal/utils/errs"
	"github.com/webpress/webpress/pkg/engine"
)

type OptimizeOptions struct {
	Engine       *engine.Engine
	Path         string
	Specs        []engine.VariantSpec
	Transparency engine.Transparency
	// OutputDir receives the encoded files; empty means next to the source.
	OutputDir string
}

// Optimize compresses a single image file into one WebP output per variant
// and returns a report entry describing the outcome. Partial success across
// variants is allowed: outputs that were produced are written even when a
// sibling variant failed, and the error carries the failures.
func Optimize(ctx context.Context, options *OptimizeOptions) (entry report.Entry, err error) {
	log.Info().Str("path", options.Path).Msg("Processing file")

	info, err := os.Stat(options.Path)
	if err != nil {
		return entry, fmt.Errorf("failed to stat input: %w", err)
	}

	src, err := decodeImage(options.Path)
	if err != nil {
		return entry, fmt.Errorf("failed to decode %s: %w", options.Path, err)
	}

	entry.Source = options.Path
	entry.OriginalBytes = info.Size()

	results, compressErr := options.Engine.Compress(ctx, src, options.Specs, options.Transparency)

	targets := make(map[string]int, len(options.Specs))
	for _, spec := range options.Specs {
		targets[spec.Name] = spec.TargetBytes
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		result := results[name]
		outPath := outputPath(options.Path, options.OutputDir, name)
		if writeErr := os.WriteFile(outPath, result.Data, 0o644); writeErr != nil {
			return entry, fmt.Errorf("failed to write %s: %w", outPath, writeErr)
		}

		log.Info().
			Str("output", outPath).
			Int("size", result.Size).
			Int("quality", result.Quality).
			Bool("target_met", result.TargetMet).
			Float64("reduction_pct", result.Reduction(entry.OriginalBytes)).
			Msg("Variant written")

		entry.Variants = append(entry.Variants, report.Variant{
			Name:        name,
			Path:        outPath,
			Width:       result.Width,
			Height:      result.Height,
			Quality:     result.Quality,
			SizeBytes:   result.Size,
			TargetBytes: targets[name],
			TargetMet:   result.TargetMet,
			Iterations:  result.Iterations,
			HasAlpha:    result.HasAlpha,
			Reduction:   result.Reduction(entry.OriginalBytes),
			Hash:        report.ContentHash(result.Data),
		})
	}

	return entry, compressErr
}

func decodeImage(path string) (src *engine.SourceImage, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer errs.Capture(&err, f.Close, "failed to close input file")

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return engine.NewSource(img), nil
}

func outputPath(srcPath, outputDir, variantName string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	fileName := fmt.Sprintf("%s_%s.webp", base, variantName)
	if outputDir == "" {
		return filepath.Join(filepath.Dir(srcPath), fileName)
	}
	return filepath.Join(outputDir, fileName)
}

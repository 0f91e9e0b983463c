package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/webpress/webpress/internal/report"
	"github.com/webpress/webpress/internal/utils"
	"github.com/webpress/webpress/pkg/encoder"
	"github.com/webpress/webpress/pkg/engine"
)

var transparencyPolicy = engine.DefaultPolicy
var encoderBackend = encoder.DefaultBackend

func init() {
	command := &cobra.Command{
		Use:   "compress [path]",
		Short: "Compress an image or a folder of images into WebP variants",
		Long: "Compress an image or a folder of images into WebP variants.\n" +
			"Each source produces a desktop and a mobile WebP sized to its byte budget,\n" +
			"with the encoding quality found by binary search.",
		RunE: CompressCommand,
		Args: cobra.ExactArgs(1),
	}

	policyFlag := enumflag.New(&transparencyPolicy, "transparency", engine.PolicyValue, enumflag.EnumCaseInsensitive)
	_ = policyFlag.RegisterCompletion(command, "transparency", engine.PolicyHelp)

	backendFlag := enumflag.New(&encoderBackend, "encoder", encoder.BackendValue, enumflag.EnumCaseInsensitive)
	_ = backendFlag.RegisterCompletion(command, "encoder", encoder.BackendHelp)

	command.Flags().Uint8P("quality", "q", 85, "Initial quality hint for the size search (10-100)")
	command.Flags().IntP("parallelism", "n", 2, "Number of files to compress in parallel")
	command.Flags().Int("desktop-target", 500, "Desktop target file size in KB")
	command.Flags().Int("desktop-width", 1920, "Desktop max width in pixels")
	command.Flags().Int("desktop-height", 1080, "Desktop max height in pixels")
	command.Flags().Int("mobile-target", 150, "Mobile target file size in KB")
	command.Flags().Int("mobile-width", 768, "Mobile max width in pixels")
	command.Flags().Int("mobile-height", 2048, "Mobile max height in pixels")
	command.Flags().Int("min-quality", 10, "Lower bound of the quality search")
	command.Flags().Int("max-quality", 100, "Upper bound of the quality search")
	command.Flags().StringP("background", "b", "#FFFFFF", "Background color for flattened transparency")
	command.Flags().StringP("output", "o", "", "Output directory (default: next to each source)")
	command.Flags().String("report", "", "Write a JSON report of the run to this path")
	command.Flags().Bool("shrink-to-fit", false, "Reduce dimensions further when no quality meets the byte budget")
	command.Flags().VarP(policyFlag, "transparency", "t",
		fmt.Sprintf("Transparency handling: %s or %s", engine.Preserve, engine.Flatten))
	command.Flags().Var(backendFlag, "encoder",
		fmt.Sprintf("Encoder backend to use: %s", encoder.ListAll()))

	AddCommand(command)
}

func CompressCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	if path == "" {
		return fmt.Errorf("path is required")
	}

	quality, err := cmd.Flags().GetUint8("quality")
	if err != nil || quality < engine.MinQualityHint || quality > engine.MaxQuality {
		return fmt.Errorf("invalid quality value")
	}

	parallelism, err := cmd.Flags().GetInt("parallelism")
	if err != nil || parallelism < 1 {
		return fmt.Errorf("invalid parallelism value")
	}

	specs, err := variantSpecsFromFlags(cmd, int(quality))
	if err != nil {
		return err
	}

	transparency, err := transparencyFromFlags(cmd)
	if err != nil {
		return err
	}

	outputDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("invalid output value")
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	reportPath, err := cmd.Flags().GetString("report")
	if err != nil {
		return fmt.Errorf("invalid report value")
	}

	enc, err := encoder.Get(encoderBackend)
	if err != nil {
		return fmt.Errorf("failed to get encoder: %w", err)
	}
	eng := engine.New(enc)

	runReport := report.New(enc.Backend())

	// Channel to manage the files to process
	fileChan := make(chan string)

	// Failures are collected under a mutex rather than a bounded channel so
	// workers can never block on reporting them, no matter how many files fail.
	var errMutex sync.Mutex
	var errList []error

	var wg sync.WaitGroup
	ctx := compressContext(cmd)

	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileChan {
				entry, err := utils.Optimize(ctx, &utils.OptimizeOptions{
					Engine:       eng,
					Path:         path,
					Specs:        specs,
					Transparency: transparency,
					OutputDir:    outputDir,
				})
				if len(entry.Variants) > 0 {
					runReport.Add(entry)
				}
				if err != nil {
					errMutex.Lock()
					errList = append(errList, fmt.Errorf("error processing file %s: %w", path, err))
					errMutex.Unlock()
				}
			}
		}()
	}

	if utils.IsValidFolder(path) {
		err = filepath.WalkDir(path, func(path string, info os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && utils.IsImageFile(info.Name()) {
				fileChan <- path
			}
			return nil
		})
		if err != nil {
			close(fileChan)
			wg.Wait()
			return fmt.Errorf("error walking the path: %w", err)
		}
	} else {
		if !utils.IsImageFile(path) {
			close(fileChan)
			wg.Wait()
			return fmt.Errorf("unsupported input file: %s", path)
		}
		fileChan <- path
	}

	close(fileChan) // Close the channel to signal workers to stop
	wg.Wait()       // Wait for all workers to finish

	for _, err := range errList {
		log.Error().Err(err).Msg("Compression error")
	}

	if reportPath != "" {
		if err := runReport.Write(reportPath); err != nil {
			errList = append(errList, fmt.Errorf("failed to write report: %w", err))
		} else {
			log.Info().Str("path", reportPath).Msg("Report written")
		}
	}

	return errors.Join(errList...)
}

func variantSpecsFromFlags(cmd *cobra.Command, qualityHint int) ([]engine.VariantSpec, error) {
	desktopTarget, _ := cmd.Flags().GetInt("desktop-target")
	desktopWidth, _ := cmd.Flags().GetInt("desktop-width")
	desktopHeight, _ := cmd.Flags().GetInt("desktop-height")
	mobileTarget, _ := cmd.Flags().GetInt("mobile-target")
	mobileWidth, _ := cmd.Flags().GetInt("mobile-width")
	mobileHeight, _ := cmd.Flags().GetInt("mobile-height")
	minQuality, _ := cmd.Flags().GetInt("min-quality")
	maxQuality, _ := cmd.Flags().GetInt("max-quality")
	shrinkToFit, _ := cmd.Flags().GetBool("shrink-to-fit")

	bounds := engine.SearchBounds{Min: minQuality, Max: maxQuality}
	specs := []engine.VariantSpec{
		{
			Name:        "desktop",
			MaxWidth:    desktopWidth,
			MaxHeight:   desktopHeight,
			TargetBytes: desktopTarget << 10,
			QualityHint: qualityHint,
			Bounds:      bounds,
			ShrinkToFit: shrinkToFit,
		},
		{
			Name:        "mobile",
			MaxWidth:    mobileWidth,
			MaxHeight:   mobileHeight,
			TargetBytes: mobileTarget << 10,
			QualityHint: qualityHint,
			Bounds:      bounds,
			ShrinkToFit: shrinkToFit,
		},
	}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func transparencyFromFlags(cmd *cobra.Command) (engine.Transparency, error) {
	if transparencyPolicy == engine.Preserve {
		return engine.PreserveAlpha(), nil
	}
	backgroundHex, _ := cmd.Flags().GetString("background")
	background, err := engine.ParseHexColor(backgroundHex)
	if err != nil {
		return engine.Transparency{}, fmt.Errorf("invalid background color: %w", err)
	}
	return engine.FlattenTo(background), nil
}

// compressContext returns the command context, defaulting to Background for
// direct invocations in tests.
func compressContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

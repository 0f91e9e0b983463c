package commands

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/pablodz/inotifywaitgo/inotifywaitgo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thediveo/enumflag/v2"

	"github.com/webpress/webpress/internal/utils"
	"github.com/webpress/webpress/pkg/encoder"
	"github.com/webpress/webpress/pkg/engine"
)

func init() {
	if runtime.GOOS != "linux" {
		return
	}
	command := &cobra.Command{
		Use:   "watch [folder]",
		Short: "Watch a folder for new images",
		Long:  "Watch a folder for new images.\nEvery image dropped into the folder is compressed into WebP variants.",
		RunE:  WatchCommand,
		Args:  cobra.ExactArgs(1),
	}

	policyFlag := enumflag.New(&transparencyPolicy, "transparency", engine.PolicyValue, enumflag.EnumCaseInsensitive)
	_ = policyFlag.RegisterCompletion(command, "transparency", engine.PolicyHelp)

	backendFlag := enumflag.New(&encoderBackend, "encoder", encoder.BackendValue, enumflag.EnumCaseInsensitive)
	_ = backendFlag.RegisterCompletion(command, "encoder", encoder.BackendHelp)

	command.Flags().Uint8P("quality", "q", 85, "Initial quality hint for the size search (10-100)")
	_ = viper.BindPFlag("quality", command.Flags().Lookup("quality"))

	command.Flags().Int("desktop-target", 500, "Desktop target file size in KB")
	_ = viper.BindPFlag("desktop-target", command.Flags().Lookup("desktop-target"))

	command.Flags().Int("desktop-width", 1920, "Desktop max width in pixels")
	_ = viper.BindPFlag("desktop-width", command.Flags().Lookup("desktop-width"))

	command.Flags().Int("desktop-height", 1080, "Desktop max height in pixels")
	_ = viper.BindPFlag("desktop-height", command.Flags().Lookup("desktop-height"))

	command.Flags().Int("mobile-target", 150, "Mobile target file size in KB")
	_ = viper.BindPFlag("mobile-target", command.Flags().Lookup("mobile-target"))

	command.Flags().Int("mobile-width", 768, "Mobile max width in pixels")
	_ = viper.BindPFlag("mobile-width", command.Flags().Lookup("mobile-width"))

	command.Flags().Int("mobile-height", 2048, "Mobile max height in pixels")
	_ = viper.BindPFlag("mobile-height", command.Flags().Lookup("mobile-height"))

	command.Flags().StringP("output", "o", "", "Output directory (default: next to each source)")
	_ = viper.BindPFlag("output", command.Flags().Lookup("output"))

	command.Flags().VarP(policyFlag, "transparency", "t",
		fmt.Sprintf("Transparency handling: %s or %s", engine.Preserve, engine.Flatten))
	command.Flags().Var(backendFlag, "encoder",
		fmt.Sprintf("Encoder backend to use: %s", encoder.ListAll()))
	_ = viper.BindPFlag("encoder", command.Flags().Lookup("encoder"))

	AddCommand(command)
}

func WatchCommand(_ *cobra.Command, args []string) error {
	path := args[0]
	if path == "" {
		return fmt.Errorf("path is required")
	}

	if !utils.IsValidFolder(path) {
		return fmt.Errorf("the path needs to be a folder")
	}

	quality := int(viper.GetUint16("quality"))
	if quality < engine.MinQualityHint || quality > engine.MaxQuality {
		return fmt.Errorf("invalid quality value")
	}

	specs := []engine.VariantSpec{
		{
			Name:        "desktop",
			MaxWidth:    viper.GetInt("desktop-width"),
			MaxHeight:   viper.GetInt("desktop-height"),
			TargetBytes: viper.GetInt("desktop-target") << 10,
			QualityHint: quality,
		},
		{
			Name:        "mobile",
			MaxWidth:    viper.GetInt("mobile-width"),
			MaxHeight:   viper.GetInt("mobile-height"),
			TargetBytes: viper.GetInt("mobile-target") << 10,
			QualityHint: quality,
		},
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	transparency := engine.PreserveAlpha()
	if transparencyPolicy == engine.Flatten {
		transparency = engine.FlattenTo(engine.DefaultBackground)
	}

	outputDir := viper.GetString("output")

	backend := encoder.FindBackend(viper.GetString("encoder"))
	enc, err := encoder.Get(backend)
	if err != nil {
		return fmt.Errorf("failed to get encoder: %w", err)
	}
	eng := engine.New(enc)

	log.Info().Str("path", path).Int("quality", quality).Str("encoder", enc.Backend()).Str("transparency", transparencyPolicy.String()).Msg("Watching directory")

	events := make(chan inotifywaitgo.FileEvent)
	errors := make(chan error)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		inotifywaitgo.WatchPath(&inotifywaitgo.Settings{
			Dir:        path,
			FileEvents: events,
			ErrorChan:  errors,
			Options: &inotifywaitgo.Options{
				Recursive: true,
				Events: []inotifywaitgo.EVENT{
					inotifywaitgo.MOVE,
					inotifywaitgo.CLOSE_WRITE,
				},
				Monitor: true,
			},
			Verbose: true,
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range events {
			log.Debug().Str("file", event.Filename).Interface("events", event.Events).Msg("File event")

			if !utils.IsImageFile(event.Filename) {
				continue
			}

			for _, e := range event.Events {
				switch e {
				case inotifywaitgo.CLOSE_WRITE, inotifywaitgo.MOVE:
					_, err := utils.Optimize(context.Background(), &utils.OptimizeOptions{
						Engine:       eng,
						Path:         event.Filename,
						Specs:        specs,
						Transparency: transparency,
						OutputDir:    outputDir,
					})
					if err != nil {
						errors <- fmt.Errorf("error processing file %s: %w", event.Filename, err)
					}
				default:
					// ignored
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range errors {
			log.Error().Err(err).Msg("Watch error")
		}
	}()

	wg.Wait()
	return nil
}

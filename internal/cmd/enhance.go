package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/MeKo-Tech/phonix/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <image>",
	Short: "Enhance one photo and export it as JPEG",
	Long: `Apply a preset and/or explicit filter parameters to one photo and write
the full resolution result as <name>_enhanced.jpg.

Explicit parameter flags override the preset's values. Out of range values
are clamped. With --save the result is also stored in the media gallery.`,
	Example: `  phonix enhance photo.jpg --preset "Vintage 12" --seed 42
  phonix enhance photo.png --brightness 120 --warmth 25 --save --tag summer`,
	Args: cobra.ExactArgs(1),
	RunE: runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	addParameterFlags(enhanceCmd, "enhance")
	enhanceCmd.Flags().Float64("quality", composite.DefaultQuality, "JPEG quality (0-1]")
	enhanceCmd.Flags().StringP("out", "o", "", "Output file (defaults to <input dir>/<name>_enhanced.jpg)")
	enhanceCmd.Flags().Bool("save", false, "Also save the result to the media gallery")
	enhanceCmd.Flags().String("owner", "local", "Gallery owner used with --save")
	enhanceCmd.Flags().StringSlice("tag", nil, "Extra gallery tags used with --save (repeatable)")
	enhanceCmd.Flags().String("db", "", "Media database path (defaults to <data-dir>/media.db)")

	bindFlags(enhanceCmd, "enhance", "quality", "out", "save", "owner", "tag", "db")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	params, preset, err := resolveParameters("enhance")
	if err != nil {
		return err
	}

	input := args[0]
	enhancer := &worker.Enhancer{
		Parameters: params,
		Quality:    viper.GetFloat64("enhance.quality"),
		Logger:     logger,
	}

	logger.Info("Enhancing image",
		"input", input,
		"preset", presetLabel(preset),
		"filter", filter.CSS(filter.Chain(params)),
	)

	out, err := enhancer.Process(context.Background(), worker.Task{
		Input:  input,
		Output: viper.GetString("enhance.out"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if !viper.GetBool("enhance.save") {
		return nil
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	var filters []string
	if preset != "" {
		filters = []string{preset}
	}
	ref, err := saveToGallery(cmd.Context(), viper.GetString("enhance.db"), data,
		media.NewGalleryMetadata(
			viper.GetString("enhance.owner"),
			filters,
			edit.NormalizeTags(viper.GetStringSlice("enhance.tag")),
			time.Now(),
		))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ref.URL)
	return nil
}

// saveToGallery opens the media store for the duration of one submit.
func saveToGallery(ctx context.Context, db string, data []byte, meta media.Metadata) (media.Reference, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(db)
	if err != nil {
		return media.Reference{}, err
	}
	defer store.Close()

	ref, err := store.Submit(ctx, data, meta)
	if err != nil {
		return media.Reference{}, err
	}
	logger.Info("Saved to gallery", "id", ref.ID, "tags", meta.Tags)
	return ref, nil
}

func openStore(db string) (*media.SQLiteStore, error) {
	path := mediaDBPath(db)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return media.Open(path, "file://"+filepath.ToSlash(filepath.Dir(path)), logger)
}

func presetLabel(name string) string {
	if name == "" {
		return "None"
	}
	return name
}

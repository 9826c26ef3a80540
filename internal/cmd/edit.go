package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var editCmd = &cobra.Command{
	Use:   "edit <image>",
	Short: "Rotate, crop and overlay a photo",
	Long: `Apply the secondary edits to a photo and write edited_<unix-ms>.jpg.

Rotation is clockwise in whole degrees. Crop is x,y,width,height in percent
of the source. Overlays: None, Vignette, Light Leak, Film Grain, Bokeh.`,
	Example: `  phonix edit photo.jpg --rotate 90 --crop 10,10,80,80 --overlay vignette`,
	Args:    cobra.ExactArgs(1),
	RunE:    runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().Int("rotate", 0, "Clockwise rotation in degrees (0-359)")
	editCmd.Flags().String("crop", "", "Crop rectangle x,y,width,height in percent")
	editCmd.Flags().String("overlay", string(edit.OverlayNone), "Overlay name")
	editCmd.Flags().Int64("seed", 1, "Seed for film grain and bokeh overlays")
	editCmd.Flags().Float64("quality", composite.DefaultQuality, "JPEG quality (0-1]")
	editCmd.Flags().String("out-dir", ".", "Output directory")

	bindFlags(editCmd, "edit", "rotate", "crop", "overlay", "seed", "quality", "out-dir")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	settings, err := editSettingsFromConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	src, err := composite.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	data, err := edit.Export(src.Image, settings, viper.GetInt64("edit.seed"), viper.GetFloat64("edit.quality"))
	if err != nil {
		return err
	}

	outDir := viper.GetString("edit.out_dir")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out := filepath.Join(outDir, composite.ExportFilename(composite.PrefixEdited, time.Now()))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Info("Image edited",
		"input", args[0],
		"output", out,
		"rotation", settings.Rotation,
		"overlay", settings.Overlay,
	)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func editSettingsFromConfig() (edit.Settings, error) {
	settings := edit.DefaultSettings()
	settings.Rotation = viper.GetInt("edit.rotate")

	if c := viper.GetString("edit.crop"); c != "" {
		crop, err := edit.ParseCrop(c)
		if err != nil {
			return edit.Settings{}, err
		}
		settings.Crop = crop
	}

	overlay, err := edit.ParseOverlay(viper.GetString("edit.overlay"))
	if err != nil {
		return edit.Settings{}, err
	}
	settings.Overlay = overlay

	return settings.Normalize(), nil
}

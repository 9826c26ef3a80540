package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/MeKo-Tech/phonix/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var batchCmd = &cobra.Command{
	Use:   "batch <image|dir>...",
	Short: "Enhance many photos in parallel",
	Long: `Apply one parameter set to every input image. Directories are expanded
to the images they contain (not recursive).`,
	Example: `  phonix batch ./holiday --preset "Warm 3" --seed 7 --out-dir ./out -w 8`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runBatch,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addParameterFlags(batchCmd, "batch")
	batchCmd.Flags().Float64("quality", composite.DefaultQuality, "JPEG quality (0-1]")
	batchCmd.Flags().String("out-dir", "", "Output directory (defaults to each input's directory)")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some images fail")

	bindFlags(batchCmd, "batch", "quality", "out-dir", "workers", "progress", "allow-failures")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	params, preset, err := resolveParameters("batch")
	if err != nil {
		return err
	}

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no images found in %s", strings.Join(args, ", "))
	}

	workers := viper.GetInt("batch.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	progress := worker.NewProgress(len(inputs), viper.GetBool("batch.progress"))
	enhancer := &worker.Enhancer{
		Parameters: params,
		Quality:    viper.GetFloat64("batch.quality"),
		OutDir:     viper.GetString("batch.out_dir"),
		Logger:     logger,
		OnWritten:  progress.AddBytes,
	}

	logger.Info("Starting batch enhancement",
		"images", len(inputs),
		"workers", workers,
		"preset", presetLabel(preset),
		"filter", filter.CSS(filter.Chain(params)),
		"out_dir", enhancer.OutDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  enhancer,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, enhancer.Tasks(inputs))
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Image enhancement failed", "input", r.Task.Input, "error", r.Err)
		}
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if viper.GetBool("batch.allow_failures") {
			logger.Warn("Some images failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d images failed to enhance", failedCount)
	}
	return nil
}

// expandInputs resolves directories to the image files directly inside them.
// Files named explicitly are kept regardless of extension.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

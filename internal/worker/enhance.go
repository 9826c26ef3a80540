package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/filter"
)

// Enhancer applies one parameter snapshot to image files and writes JPEGs.
type Enhancer struct {
	Parameters filter.Parameters
	Quality    float64
	OutDir     string
	Logger     *slog.Logger

	// OnWritten, when set, receives the encoded size of every written file.
	OnWritten func(n int)
}

// OutputPath derives the output path for input: <out-dir>/<base>_enhanced.jpg.
func (e *Enhancer) OutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dir := e.OutDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+"_"+composite.PrefixEnhanced+".jpg")
}

// Tasks builds one task per input.
func (e *Enhancer) Tasks(inputs []string) []Task {
	tasks := make([]Task, 0, len(inputs))
	for _, in := range inputs {
		tasks = append(tasks, Task{Input: in, Output: e.OutputPath(in)})
	}
	return tasks
}

// Process implements Processor.
func (e *Enhancer) Process(ctx context.Context, task Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(task.Input)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", task.Input, err)
	}
	src, err := composite.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", task.Input, err)
	}

	data, err := composite.Export(src, filter.Clamp(e.Parameters), e.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to export %s: %w", task.Input, err)
	}

	out := task.Output
	if out == "" {
		out = e.OutputPath(task.Input)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	if e.OnWritten != nil {
		e.OnWritten(len(data))
	}

	e.log().Debug("image enhanced", "input", task.Input, "output", out, "width", src.Width, "height", src.Height)
	return out, nil
}

func (e *Enhancer) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

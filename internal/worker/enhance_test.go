package worker

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 180, G: 120, B: 60, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestEnhancerOutputPath(t *testing.T) {
	e := &Enhancer{OutDir: "/out"}
	assert.Equal(t, filepath.Join("/out", "beach_enhanced.jpg"), e.OutputPath("/photos/beach.png"))

	e = &Enhancer{}
	assert.Equal(t, filepath.Join("/photos", "beach_enhanced.jpg"), e.OutputPath("/photos/beach.png"))
}

func TestEnhancerBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 30, 20)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	var written int
	e := &Enhancer{
		Parameters: filter.Parameters{Brightness: 120, Contrast: 110, Saturation: 80, Sepia: 30},
		Quality:    0.9,
		OutDir:     filepath.Join(dir, "out"),
		OnWritten:  func(n int) { written += n },
	}

	pool := New(Config{Workers: 1, Processor: e})
	results := pool.Run(context.Background(), e.Tasks([]string{good, bad}))
	require.Len(t, results, 2)

	byInput := map[string]Result{}
	for _, r := range results {
		byInput[r.Task.Input] = r
	}

	require.NoError(t, byInput[good].Err)
	assert.Error(t, byInput[bad].Err)

	f, err := os.Open(byInput[good].Output)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	info, err := os.Stat(byInput[good].Output)
	require.NoError(t, err)
	assert.Equal(t, int(info.Size()), written)
}

func TestEnhancerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Enhancer{}).Process(ctx, Task{Input: "whatever.png"})
	assert.ErrorIs(t, err, context.Canceled)
}

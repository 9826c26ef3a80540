package composite

import "fmt"

// ImageDecodeError reports a source image that could not be read or decoded.
// The caller should ask for a new image; session parameters stay as they were.
type ImageDecodeError struct {
	Format string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("failed to decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// ExportEncodeError reports a failure while serializing the offscreen surface.
// Nothing has been written anywhere; the export may be retried.
type ExportEncodeError struct {
	Err error
}

func (e *ExportEncodeError) Error() string {
	return fmt.Sprintf("failed to encode export: %v", e.Err)
}

func (e *ExportEncodeError) Unwrap() error { return e.Err }

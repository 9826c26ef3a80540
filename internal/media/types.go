// Package media stores exported images and their gallery metadata.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown media ids.
var ErrNotFound = errors.New("media not found")

// Metadata describes one stored media item.
type Metadata struct {
	ID               string        `json:"id"`
	Filename         string        `json:"filename"`
	Owner            string        `json:"owner"`
	ContentType      string        `json:"contentType"`
	Tags             []string      `json:"tags"`
	FiltersApplied   []string      `json:"filtersApplied"`
	AREffectsApplied []string      `json:"arEffectsApplied"`
	IsVideo          bool          `json:"isVideo"`
	Duration         time.Duration `json:"duration,omitempty"`
	Size             int64         `json:"size"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Reference points at a stored item.
type Reference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Store is the storage collaborator: submit bytes and receive a reference,
// fetch bytes by reference.
type Store interface {
	Submit(ctx context.Context, data []byte, meta Metadata) (Reference, error)
	Fetch(ctx context.Context, id string) ([]byte, Metadata, error)
	ByTag(ctx context.Context, tag string) ([]Metadata, error)
	Search(ctx context.Context, query string) ([]Metadata, error)
	Delete(ctx context.Context, id string) error
}

// StorageSubmitError reports a rejected or failed save. The caller keeps its
// local edit so the save can be retried.
type StorageSubmitError struct {
	ID  string
	Err error
}

func (e *StorageSubmitError) Error() string {
	return fmt.Sprintf("failed to store media %q: %v", e.ID, e.Err)
}

func (e *StorageSubmitError) Unwrap() error { return e.Err }

// GalleryTag is attached to every enhanced photo saved to the gallery.
const GalleryTag = "enhanced"

// NewGalleryMetadata builds the metadata for saving an enhanced photo:
// id enhanced_<unix-ms>_<8 hex>, filename enhanced_<RFC3339>.jpg, the "enhanced" tag
// plus any extra tags, and the applied preset names.
func NewGalleryMetadata(owner string, filters []string, extraTags []string, now time.Time) Metadata {
	tags := []string{GalleryTag}
	for _, t := range extraTags {
		if t != "" && t != GalleryTag {
			tags = append(tags, t)
		}
	}
	if filters == nil {
		filters = []string{}
	}

	return Metadata{
		ID:               galleryID(now),
		Filename:         fmt.Sprintf("enhanced_%s.jpg", now.UTC().Format(time.RFC3339)),
		Owner:            owner,
		ContentType:      "image/jpeg",
		Tags:             tags,
		FiltersApplied:   filters,
		AREffectsApplied: []string{},
		CreatedAt:        now,
	}
}

// galleryID keeps the enhanced_<unix-ms> prefix and adds a random suffix so
// saves landing in the same millisecond do not collide.
func galleryID(now time.Time) string {
	return fmt.Sprintf("enhanced_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "media.db"), "http://localhost:8080/", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('media', 'media_tags')").Scan(&count)
	if err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 tables, got %d", count)
	}
}

func TestSubmitFetchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.UnixMilli(1700000000123)
	meta := NewGalleryMetadata("alice", []string{"Vintage 3"}, []string{"beach"}, now)
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}

	ref, err := s.Submit(ctx, data, meta)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, ref.ID)
	assert.Regexp(t, `^enhanced_1700000000123_[0-9a-f]{8}$`, ref.ID)
	assert.Equal(t, "http://localhost:8080/media/"+ref.ID, ref.URL)

	got, gotMeta, err := s.Fetch(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "alice", gotMeta.Owner)
	assert.Equal(t, []string{"enhanced", "beach"}, gotMeta.Tags)
	assert.Equal(t, []string{"Vintage 3"}, gotMeta.FiltersApplied)
	assert.Equal(t, []string{}, gotMeta.AREffectsApplied)
	assert.Equal(t, int64(len(data)), gotMeta.Size)
	assert.False(t, gotMeta.IsVideo)
	assert.Zero(t, gotMeta.Duration)
	assert.True(t, now.Equal(gotMeta.CreatedAt))
}

func TestSubmitDuplicateIsStorageError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := NewGalleryMetadata("bob", nil, nil, time.UnixMilli(42))
	_, err := s.Submit(ctx, []byte{1}, meta)
	require.NoError(t, err)

	_, err = s.Submit(ctx, []byte{2}, meta)
	var subErr *StorageSubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, meta.ID, subErr.ID)

	got, _, err := s.Fetch(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, got, "failed submit must not overwrite")
}

func TestSubmitRejectsEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Submit(context.Background(), nil, Metadata{ID: "x"})
	var subErr *StorageSubmitError
	assert.ErrorAs(t, err, &subErr)

	_, err = s.Submit(context.Background(), []byte{1}, Metadata{})
	assert.ErrorAs(t, err, &subErr)
}

func TestFetchNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Fetch(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestByTagAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Metadata{
		NewGalleryMetadata("a", nil, []string{"Sunset"}, time.UnixMilli(1000)),
		NewGalleryMetadata("a", nil, []string{"sunrise"}, time.UnixMilli(2000)),
		NewGalleryMetadata("b", nil, []string{"city"}, time.UnixMilli(3000)),
	}
	for _, m := range items {
		_, err := s.Submit(ctx, []byte{0xFF}, m)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		run  func() ([]Metadata, error)
		want []int // indexes into items
	}{
		{"by tag case insensitive", func() ([]Metadata, error) { return s.ByTag(ctx, "SUNSET") }, []int{0}},
		{"by gallery tag newest first", func() ([]Metadata, error) { return s.ByTag(ctx, GalleryTag) }, []int{2, 1, 0}},
		{"by missing tag", func() ([]Metadata, error) { return s.ByTag(ctx, "nope") }, []int{}},
		{"search substring", func() ([]Metadata, error) { return s.Search(ctx, "sun") }, []int{1, 0}},
		{"search empty lists all", func() ([]Metadata, error) { return s.Search(ctx, "  ") }, []int{2, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			require.NoError(t, err)
			want := []string{}
			for _, i := range tt.want {
				want = append(want, items[i].ID)
			}
			ids := []string{}
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, want, ids)
		})
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := NewGalleryMetadata("a", nil, []string{"gone"}, time.UnixMilli(7))
	_, err := s.Submit(ctx, []byte{1, 2, 3}, meta)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, meta.ID))
	_, _, err = s.Fetch(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tagged, err := s.ByTag(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, tagged)

	assert.ErrorIs(t, s.Delete(ctx, meta.ID), ErrNotFound)
}

func TestNewGalleryMetadata(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	m := NewGalleryMetadata("carol", nil, []string{"", "enhanced", "trip"}, now)
	assert.Regexp(t, `^enhanced_1709296200000_[0-9a-f]{8}$`, m.ID)
	assert.NotEqual(t, m.ID, NewGalleryMetadata("carol", nil, nil, now).ID, "same-millisecond saves get distinct ids")
	assert.Equal(t, "enhanced_2024-03-01T12:30:00Z.jpg", m.Filename)
	assert.Equal(t, []string{"enhanced", "trip"}, m.Tags)
	assert.Equal(t, []string{}, m.FiltersApplied)
	assert.Equal(t, "image/jpeg", m.ContentType)
	assert.False(t, m.IsVideo)
}

func TestSubmitSameMillisecondSaves(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000123)

	first, err := s.Submit(ctx, []byte{0x01}, NewGalleryMetadata("alice", nil, nil, now))
	require.NoError(t, err)
	second, err := s.Submit(ctx, []byte{0x02}, NewGalleryMetadata("alice", nil, nil, now))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items, err := s.ByTag(ctx, GalleryTag)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

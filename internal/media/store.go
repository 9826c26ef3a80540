package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps media blobs and metadata in a single SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	baseURL string
	logger  *slog.Logger
}

// Open opens (creating if needed) the media database at path.
// baseURL prefixes the direct URLs handed out in references.
func Open(path, baseURL string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		path:    path,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			owner TEXT NOT NULL,
			content_type TEXT NOT NULL,
			tags TEXT NOT NULL,
			filters TEXT NOT NULL,
			ar_effects TEXT NOT NULL,
			is_video INTEGER NOT NULL,
			duration_ms INTEGER,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			data BLOB NOT NULL
		);

		CREATE TABLE IF NOT EXISTS media_tags (
			media_id TEXT NOT NULL REFERENCES media(id),
			tag TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS media_tags_tag ON media_tags (tag);
		CREATE INDEX IF NOT EXISTS media_created ON media (created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Submit stores data under meta.ID and returns its reference.
// Any failure is a *StorageSubmitError and leaves nothing behind.
func (s *SQLiteStore) Submit(ctx context.Context, data []byte, meta Metadata) (Reference, error) {
	if meta.ID == "" {
		return Reference{}, &StorageSubmitError{Err: errors.New("missing media id")}
	}
	if len(data) == 0 {
		return Reference{}, &StorageSubmitError{ID: meta.ID, Err: errors.New("empty media data")}
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	meta.Size = int64(len(data))

	if err := s.insert(ctx, data, meta); err != nil {
		s.log().Error("media submit failed", "id", meta.ID, "error", err)
		return Reference{}, &StorageSubmitError{ID: meta.ID, Err: err}
	}

	s.log().Info("media stored",
		"id", meta.ID,
		"owner", meta.Owner,
		"size", humanize.Bytes(uint64(len(data))),
		"tags", meta.Tags,
	)
	return s.reference(meta.ID), nil
}

func (s *SQLiteStore) insert(ctx context.Context, data []byte, meta Metadata) error {
	tags, err := encodeList(meta.Tags)
	if err != nil {
		return err
	}
	filters, err := encodeList(meta.FiltersApplied)
	if err != nil {
		return err
	}
	effects, err := encodeList(meta.AREffectsApplied)
	if err != nil {
		return err
	}

	var duration sql.NullInt64
	if meta.Duration > 0 {
		duration = sql.NullInt64{Int64: meta.Duration.Milliseconds(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO media (id, filename, owner, content_type, tags, filters, ar_effects, is_video, duration_ms, size, created_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Filename, meta.Owner, meta.ContentType, tags, filters, effects,
		meta.IsVideo, duration, meta.Size, meta.CreatedAt.UnixMilli(), data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO media_tags (media_id, tag) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare tag insert: %w", err)
	}
	defer stmt.Close()

	for _, tag := range meta.Tags {
		if _, err := stmt.ExecContext(ctx, meta.ID, strings.ToLower(tag)); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const metadataColumns = "id, filename, owner, content_type, tags, filters, ar_effects, is_video, duration_ms, size, created_at"

// Fetch returns the stored bytes and metadata for id.
func (s *SQLiteStore) Fetch(ctx context.Context, id string) ([]byte, Metadata, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+metadataColumns+", data FROM media WHERE id = ?", id)

	var data []byte
	meta, err := scanMetadata(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to query media: %w", err)
	}
	return data, meta, nil
}

// ByTag lists media carrying exactly tag (case-insensitive), newest first.
func (s *SQLiteStore) ByTag(ctx context.Context, tag string) ([]Metadata, error) {
	return s.list(ctx,
		"SELECT "+metadataColumns+" FROM media WHERE id IN (SELECT media_id FROM media_tags WHERE tag = ?) ORDER BY created_at DESC",
		strings.ToLower(strings.TrimSpace(tag)),
	)
}

// Search lists media with any tag containing query (case-insensitive), newest first.
// An empty query lists everything.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]Metadata, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.list(ctx, "SELECT "+metadataColumns+" FROM media ORDER BY created_at DESC")
	}
	return s.list(ctx,
		"SELECT "+metadataColumns+" FROM media WHERE id IN (SELECT media_id FROM media_tags WHERE instr(tag, ?) > 0) ORDER BY created_at DESC",
		q,
	)
}

// Delete removes a media item.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM media_tags WHERE media_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete tags: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// URL returns the direct URL for a media id.
func (s *SQLiteStore) URL(id string) string {
	return s.baseURL + "/media/" + url.PathEscape(id)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) reference(id string) Reference {
	return Reference{ID: id, URL: s.URL(id)}
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	result := []Metadata{}
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		result = append(result, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner, extra ...any) (Metadata, error) {
	var (
		meta                   Metadata
		tags, filters, effects string
		duration               sql.NullInt64
		created                int64
	)

	dest := []any{
		&meta.ID, &meta.Filename, &meta.Owner, &meta.ContentType,
		&tags, &filters, &effects, &meta.IsVideo, &duration, &meta.Size, &created,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return Metadata{}, err
	}

	var err error
	if meta.Tags, err = decodeList(tags); err != nil {
		return Metadata{}, err
	}
	if meta.FiltersApplied, err = decodeList(filters); err != nil {
		return Metadata{}, err
	}
	if meta.AREffectsApplied, err = decodeList(effects); err != nil {
		return Metadata{}, err
	}
	if duration.Valid {
		meta.Duration = time.Duration(duration.Int64) * time.Millisecond
	}
	meta.CreatedAt = time.UnixMilli(created)

	return meta, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

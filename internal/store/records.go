package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

const timeLayout = time.RFC3339

// Upsert inserts a record or merges it into the existing row. Merge rules:
// metadata is merged key-wise, captured_at never moves backwards, populated
// translation fields are never clobbered, and content fields freeze once the
// record is translated.
func (s *Store) Upsert(ctx context.Context, rec ingest.Record) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	existing, err := findTx(ctx, tx, rec.Source, rec.ExternalID)
	if err != nil {
		return false, err
	}

	created := existing == nil
	if created {
		if err := insertTx(ctx, tx, rec); err != nil {
			return false, err
		}
	} else {
		if err := mergeTx(ctx, tx, *existing, rec); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}
	return created, nil
}

func insertTx(ctx context.Context, tx *sql.Tx, rec ingest.Record) error {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO records (
    source, external_id, captured_at, published_at, title,
    original_text, original_language,
    translated_title, translated_text, translated_language,
    normalized_hash, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.ExternalID,
		rec.CapturedAt.UTC().Format(timeLayout), encodeTime(rec.PublishedAt),
		rec.Title, rec.OriginalText, rec.OriginalLanguage,
		rec.TranslatedTitle, rec.TranslatedText, rec.TranslatedLanguage,
		rec.NormalizedHash, meta,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func mergeTx(ctx context.Context, tx *sql.Tx, old, rec ingest.Record) error {
	capturedAt := rec.CapturedAt.UTC()
	if old.CapturedAt.After(capturedAt) {
		// Later capture never back-dates an earlier one.
		capturedAt = old.CapturedAt
	}

	merged := make(map[string]string, len(old.Metadata)+len(rec.Metadata))
	for k, v := range old.Metadata {
		merged[k] = v
	}
	for k, v := range rec.Metadata {
		merged[k] = v
	}
	meta, err := encodeMetadata(merged)
	if err != nil {
		return err
	}

	publishedAt := old.PublishedAt
	if publishedAt == nil {
		publishedAt = rec.PublishedAt
	}

	if old.Translated() {
		// Translated records are immutable except for metadata refresh.
		_, err = tx.ExecContext(ctx, `
UPDATE records SET captured_at = ?, published_at = ?, metadata = ?
WHERE source = ? AND external_id = ?`,
			capturedAt.Format(timeLayout), encodeTime(publishedAt), meta,
			old.Source, old.ExternalID)
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE records SET captured_at = ?, published_at = ?, title = ?,
    original_text = ?, original_language = ?, normalized_hash = ?, metadata = ?
WHERE source = ? AND external_id = ?`,
			capturedAt.Format(timeLayout), encodeTime(publishedAt),
			pick(rec.Title, old.Title),
			pick(rec.OriginalText, old.OriginalText),
			pick(rec.OriginalLanguage, old.OriginalLanguage),
			pick(rec.NormalizedHash, old.NormalizedHash),
			meta,
			old.Source, old.ExternalID)
	}
	if err != nil {
		return fmt.Errorf("merge record: %w", err)
	}
	return nil
}

// FindByExternalID returns the stored record or nil when absent.
func (s *Store) FindByExternalID(ctx context.Context, source ingest.SourceID, externalID string) (*ingest.Record, error) {
	row := s.conn.QueryRowContext(ctx, selectColumns+`
FROM records WHERE source = ? AND external_id = ?`, source, externalID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func findTx(ctx context.Context, tx *sql.Tx, source ingest.SourceID, externalID string) (*ingest.Record, error) {
	row := tx.QueryRowContext(ctx, selectColumns+`
FROM records WHERE source = ? AND external_id = ?`, source, externalID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// HasRecentHash reports whether the hash was captured for the source at or
// after the window start.
func (s *Store) HasRecentHash(ctx context.Context, source ingest.SourceID, hash string, since time.Time) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `
SELECT COUNT(1) FROM records
WHERE source = ? AND normalized_hash = ? AND captured_at >= ?`,
		source, hash, since.UTC().Format(timeLayout)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return n > 0, nil
}

// ListUntranslated returns records still awaiting translation, oldest capture
// first so backlog drains in order.
func (s *Store) ListUntranslated(ctx context.Context, limit int) ([]ingest.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.conn.QueryContext(ctx, selectColumns+`
FROM records WHERE translated_language = ''
ORDER BY captured_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list untranslated: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// SetTranslation fills the translation fields of an existing record. The
// record becomes immutable (except metadata) from here on.
func (s *Store) SetTranslation(ctx context.Context, source ingest.SourceID, externalID, title, text, language string) error {
	res, err := s.conn.ExecContext(ctx, `
UPDATE records SET translated_title = ?, translated_text = ?, translated_language = ?
WHERE source = ? AND external_id = ?`,
		title, text, language, source, externalID)
	if err != nil {
		return fmt.Errorf("set translation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set translation result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s/%s not found", source, externalID)
	}
	return nil
}

const selectColumns = `
SELECT source, external_id, captured_at, published_at, title,
    original_text, original_language,
    translated_title, translated_text, translated_language,
    normalized_hash, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*ingest.Record, error) {
	var (
		rec         ingest.Record
		capturedAt  string
		publishedAt sql.NullString
		meta        string
	)
	if err := row.Scan(
		&rec.Source, &rec.ExternalID, &capturedAt, &publishedAt, &rec.Title,
		&rec.OriginalText, &rec.OriginalLanguage,
		&rec.TranslatedTitle, &rec.TranslatedText, &rec.TranslatedLanguage,
		&rec.NormalizedHash, &meta,
	); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parse captured_at: %w", err)
	}
	rec.CapturedAt = t
	if publishedAt.Valid && publishedAt.String != "" {
		p, err := time.Parse(timeLayout, publishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		rec.PublishedAt = &p
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]ingest.Record, error) {
	var out []ingest.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func encodeMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func pick(next, current string) string {
	if next != "" {
		return next
	}
	return current
}

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// QueryParams filters record listings. The zero value lists everything.
type QueryParams struct {
	Sources           []ingest.SourceID
	Since             *time.Time
	Until             *time.Time
	TextQuery         string
	Language          string
	RequireTranslated bool
	Limit             int
	Offset            int
}

// Query lists records ordered by published_at descending with nulls last,
// ties broken by captured_at descending. The ordering is a contract the query
// service relies on for stable pagination.
func (s *Store) Query(ctx context.Context, p QueryParams) ([]ingest.Record, error) {
	where, args := buildFilters(p)
	limit := p.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := selectColumns + `
FROM records` + where + `
ORDER BY published_at IS NULL ASC, published_at DESC, captured_at DESC
LIMIT ? OFFSET ?`
	args = append(args, limit, p.Offset)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// SourceCount is one row of the by-source aggregate.
type SourceCount struct {
	Source ingest.SourceID `json:"source"`
	Count  int             `json:"count"`
}

// CountBySource aggregates record counts per source.
func (s *Store) CountBySource(ctx context.Context, p QueryParams) ([]SourceCount, error) {
	where, args := buildFilters(p)
	rows, err := s.conn.QueryContext(ctx, `
SELECT source, COUNT(1) FROM records`+where+`
GROUP BY source ORDER BY source`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var c SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DayCount is one row of the by-day aggregate. Day is the publication day
// (capture day when publication is unknown), formatted YYYY-MM-DD.
type DayCount struct {
	Day    string          `json:"day"`
	Source ingest.SourceID `json:"source"`
	Count  int             `json:"count"`
}

// CountByDay aggregates record counts per day and source.
func (s *Store) CountByDay(ctx context.Context, p QueryParams) ([]DayCount, error) {
	where, args := buildFilters(p)
	rows, err := s.conn.QueryContext(ctx, `
SELECT substr(COALESCE(published_at, captured_at), 1, 10) AS day, source, COUNT(1)
FROM records`+where+`
GROUP BY day, source ORDER BY day DESC, source`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var c DayCount
		if err := rows.Scan(&c.Day, &c.Source, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func buildFilters(p QueryParams) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(p.Sources) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(p.Sources)), ",")
		clauses = append(clauses, "source IN ("+placeholders+")")
		for _, s := range p.Sources {
			args = append(args, s)
		}
	}
	if p.Since != nil {
		clauses = append(clauses, "COALESCE(published_at, captured_at) >= ?")
		args = append(args, p.Since.UTC().Format(timeLayout))
	}
	if p.Until != nil {
		clauses = append(clauses, "COALESCE(published_at, captured_at) < ?")
		args = append(args, p.Until.UTC().Format(timeLayout))
	}
	if p.TextQuery != "" {
		clauses = append(clauses, "(original_text LIKE ? OR translated_text LIKE ? OR title LIKE ?)")
		like := "%" + p.TextQuery + "%"
		args = append(args, like, like, like)
	}
	if p.Language != "" {
		clauses = append(clauses, "original_language = ?")
		args = append(args, p.Language)
	}
	if p.RequireTranslated {
		clauses = append(clauses, "translated_language != ''")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(clauses, " AND "), args
}

package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

func TestParsePublishedCJKDate(t *testing.T) {
	captured := time.Date(2025, 12, 23, 0, 0, 0, 0, time.UTC)
	got := ParsePublished(ingest.SourcePeoplesDaily, "人民日报 2025年12月22日 第01版", captured)
	require.NotNil(t, got)
	require.Equal(t, time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC), *got)
}

func TestParsePublishedWeiboSameYear(t *testing.T) {
	captured := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	got := ParsePublished(ingest.SourceWeibo, "12月21日 17:11", captured)
	require.NotNil(t, got)
	require.Equal(t, time.Date(2025, 12, 21, 17, 11, 0, 0, time.UTC), *got)
}

func TestParsePublishedWeiboYearRollover(t *testing.T) {
	// A December post captured in January belongs to the previous year.
	captured := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	got := ParsePublished(ingest.SourceWeibo, "12月31日 23:58", captured)
	require.NotNil(t, got)
	require.Equal(t, 2025, got.Year())
}

func TestParsePublishedWSJRelative(t *testing.T) {
	captured := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := ParsePublished(ingest.SourceWSJ, "42 min ago", captured)
	require.NotNil(t, got)
	require.Equal(t, captured.Add(-42*time.Minute), *got)

	got = ParsePublished(ingest.SourceWSJ, "3 hours ago", captured)
	require.NotNil(t, got)
	require.Equal(t, captured.Add(-3*time.Hour), *got)
}

func TestParsePublishedTwitterISO(t *testing.T) {
	captured := time.Now().UTC()
	got := ParsePublished(ingest.SourceTwitter, "2026-02-28T15:04:05.000Z", captured)
	require.NotNil(t, got)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.February, got.Month())
}

func TestParsePublishedUnparseableIsNil(t *testing.T) {
	captured := time.Now().UTC()
	require.Nil(t, ParsePublished(ingest.SourceWSJ, "", captured))
	require.Nil(t, ParsePublished(ingest.SourceWeibo, "ontem talvez", captured))
}

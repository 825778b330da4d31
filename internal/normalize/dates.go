package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

var (
	cjkDatePattern   = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	weiboTimePattern = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日\s*(\d{1,2}):(\d{1,2})`)
	relativePattern  = regexp.MustCompile(`(\d+)\s*(min|hour)`)
)

// ParsePublished resolves a source's raw timestamp string into a best-effort
// publication time. Returns nil when the string cannot be interpreted;
// published_at is nullable by contract.
func ParsePublished(source ingest.SourceID, raw string, capturedAt time.Time) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	switch source {
	case ingest.SourcePeoplesDaily:
		if t, ok := parseCJKDate(raw); ok {
			return &t
		}
	case ingest.SourceWeibo:
		if t, ok := parseWeiboTime(raw, capturedAt); ok {
			return &t
		}
	case ingest.SourceWSJ:
		if t, ok := parseRelative(raw, capturedAt); ok {
			return &t
		}
	case ingest.SourceTwitter:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	// Generic fallback for anything the source-specific rule missed.
	if t, err := dateparse.ParseAny(raw); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

// parseCJKDate handles "2025年12月22日".
func parseCJKDate(raw string) (time.Time, bool) {
	m := cjkDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// parseWeiboTime handles "12月21日 17:11", which omits the year. December
// posts captured in January belong to the previous year.
func parseWeiboTime(raw string, capturedAt time.Time) (time.Time, bool) {
	m := weiboTimePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])

	year := capturedAt.Year()
	if capturedAt.Month() == time.January && time.Month(month) == time.December {
		year--
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

// parseRelative handles "42 min ago" / "3 hours ago" against the capture time.
func parseRelative(raw string, capturedAt time.Time) (time.Time, bool) {
	m := relativePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "min":
		return capturedAt.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return capturedAt.Add(-time.Duration(n) * time.Hour), true
	}
	return time.Time{}, false
}

package ingest

import (
	"context"
	"time"
)

// Session is a live browser session bound to one identity. Adapters drive it
// but never decide when to rotate it; that is the governor's job.
type Session interface {
	// Identity names the browser profile/credential set backing the session.
	Identity() string
	// Navigate loads a URL and returns the rendered document.
	Navigate(ctx context.Context, url string) (PageSnapshot, error)
	// ScrollBottom scrolls the page n times with a pause between scrolls,
	// used for infinite feeds.
	ScrollBottom(ctx context.Context, n int, pause time.Duration) error
	// Content returns the current DOM snapshot without navigating.
	Content(ctx context.Context) (PageSnapshot, error)
	// Close releases the browser tab and profile resources.
	Close()
}

// SessionPool hands out sessions per source and rotates identities after a
// block. Acquire and Rotate both return a ready session.
type SessionPool interface {
	Acquire(ctx context.Context, source SourceID) (Session, error)
	// Rotate closes old and returns a session on a different identity.
	Rotate(ctx context.Context, source SourceID, old Session) (Session, error)
}

// SourceAdapter extracts raw candidate items from one site. A fresh Scan
// re-reads the source's current state; there is no cursor to resume from.
type SourceAdapter interface {
	Source() SourceID
	Scan(ctx context.Context, session Session, run RunContext) ([]CandidateItem, error)
}

// RecordStore is the persistence contract the pipeline writes through.
// Upsert is idempotent on (source, external_id) and safe for concurrent calls
// on different keys.
type RecordStore interface {
	// Upsert inserts or merges a record. Merge never clobbers populated
	// translation fields and never back-dates captured_at.
	Upsert(ctx context.Context, rec Record) (created bool, err error)
	// FindByExternalID returns the stored record or nil when absent.
	FindByExternalID(ctx context.Context, source SourceID, externalID string) (*Record, error)
	// HasRecentHash reports whether the normalized hash was seen for the
	// source at or after the window start.
	HasRecentHash(ctx context.Context, source SourceID, hash string, since time.Time) (bool, error)
	// ListUntranslated returns records still awaiting translation.
	ListUntranslated(ctx context.Context, limit int) ([]Record, error)
	// SetTranslation fills the translation fields of an existing record.
	SetTranslation(ctx context.Context, source SourceID, externalID, title, text, language string) error
}

// Translator renders text into a target language. Implementations return
// a TranslationUnavailable classified error on provider failure.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SnapshotStore archives raw page artifacts and returns a URI.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

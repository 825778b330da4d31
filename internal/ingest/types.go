// Package ingest defines core types shared across the extraction pipeline.
package ingest

import (
	"time"
)

// SourceID identifies one of the four monitored sources. The set is fixed;
// adapters are selected by this enum, never discovered at runtime.
type SourceID string

// The four sources covered by the pipeline.
const (
	SourcePeoplesDaily SourceID = "peoples_daily"
	SourceWSJ          SourceID = "wsj"
	SourceWeibo        SourceID = "weibo"
	SourceTwitter      SourceID = "twitter"
)

// AllSources returns the fixed source set in pipeline order.
func AllSources() []SourceID {
	return []SourceID{SourcePeoplesDaily, SourceWSJ, SourceWeibo, SourceTwitter}
}

// Valid reports whether s is one of the four known sources.
func (s SourceID) Valid() bool {
	switch s {
	case SourcePeoplesDaily, SourceWSJ, SourceWeibo, SourceTwitter:
		return true
	}
	return false
}

// Kind distinguishes editorial media from public social platforms.
type Kind string

// Source kinds.
const (
	KindMedia  Kind = "media"
	KindSocial Kind = "social"
)

// Kind returns the source category.
func (s SourceID) Kind() Kind {
	switch s {
	case SourceWeibo, SourceTwitter:
		return KindSocial
	default:
		return KindMedia
	}
}

// Country returns the country associated with the source.
func (s SourceID) Country() string {
	switch s {
	case SourcePeoplesDaily, SourceWeibo:
		return "China"
	default:
		return "USA"
	}
}

// ExpectedLanguage returns the language tag content from this source is
// expected to carry. Detection mismatches are recorded, not rejected.
func (s SourceID) ExpectedLanguage() string {
	switch s {
	case SourcePeoplesDaily, SourceWeibo:
		return "zh"
	default:
		return "en"
	}
}

// TargetLanguage is the comparison language every record is rendered into.
const TargetLanguage = "pt"

// CandidateItem is the raw, unvalidated output of a source adapter, prior to
// normalization. ExternalID is the source-native identifier (URL or post ID).
type CandidateItem struct {
	ExternalID   string
	Title        string
	Text         string
	RawHTML      string
	PublishedRaw string
	Position     int
	Metadata     map[string]string
}

// Record is the canonical unit of content persisted by the pipeline.
type Record struct {
	Source             SourceID          `json:"source"`
	ExternalID         string            `json:"external_id"`
	CapturedAt         time.Time         `json:"captured_at"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`
	Title              string            `json:"title,omitempty"`
	OriginalText       string            `json:"original_text"`
	OriginalLanguage   string            `json:"original_language"`
	TranslatedTitle    string            `json:"translated_title,omitempty"`
	TranslatedText     string            `json:"translated_text,omitempty"`
	TranslatedLanguage string            `json:"translated_language,omitempty"`
	NormalizedHash     string            `json:"normalized_hash"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Translated reports whether the record already carries its comparison
// rendering. Once true the record is immutable except for metadata refresh.
func (r Record) Translated() bool {
	return r.TranslatedLanguage != ""
}

// RunStatus is the terminal outcome of one orchestrator invocation.
type RunStatus string

// Run statuses persisted in run reports.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// SourceCounters tracks per-source outcomes within one run.
// TranslationsDeferred counts records whose translation attempt failed this
// run; they stay pending and are retried on the next one.
type SourceCounters struct {
	Attempted            int `json:"attempted"`
	Extracted            int `json:"extracted"`
	Deduplicated         int `json:"deduplicated"`
	Failed               int `json:"failed"`
	TranslationsDeferred int `json:"translations_deferred"`
}

// RunReport is created at run start, finalized once on entering a terminal
// state, and immutable thereafter. The external trigger branches on Status.
type RunReport struct {
	ID         string                       `json:"id"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt *time.Time                   `json:"finished_at,omitempty"`
	Status     RunStatus                    `json:"status"`
	Sources    map[SourceID]*SourceCounters `json:"sources"`
	Errors     map[SourceID]string          `json:"errors,omitempty"`
}

// NewRunReport builds a running report covering all four sources.
func NewRunReport(id string, start time.Time) *RunReport {
	sources := make(map[SourceID]*SourceCounters, len(AllSources()))
	for _, s := range AllSources() {
		sources[s] = &SourceCounters{}
	}
	return &RunReport{
		ID:        id,
		StartedAt: start,
		Status:    RunStatusRunning,
		Sources:   sources,
		Errors:    make(map[SourceID]string),
	}
}

// Counters returns the mutable counter block for a source.
func (r *RunReport) Counters(source SourceID) *SourceCounters {
	c, ok := r.Sources[source]
	if !ok {
		c = &SourceCounters{}
		r.Sources[source] = c
	}
	return c
}

// MarkSourceFailed records a terminal per-source failure without aborting the
// rest of the run.
func (r *RunReport) MarkSourceFailed(source SourceID, err error) {
	if err == nil {
		return
	}
	r.Errors[source] = err.Error()
}

// Finalize derives the terminal status from per-source outcomes and stamps the
// end time. A persistence abort is reported by the caller passing failed=true.
func (r *RunReport) Finalize(end time.Time, persistenceFailed bool) {
	r.FinishedAt = &end
	switch {
	case persistenceFailed, len(r.Errors) >= len(r.Sources):
		r.Status = RunStatusFailed
	case len(r.Errors) > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusSuccess
	}
}

// RunContext carries per-run parameters through the orchestrator call chain.
// It is passed explicitly so concurrent test runs never share state.
type RunContext struct {
	RunID     string
	Since     time.Time
	Until     time.Time
	MaxItems  int
	BatchDate time.Time
}

// PageSnapshot is the rendered result of one browser navigation.
type PageSnapshot struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

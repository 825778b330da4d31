package normalize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/hash/sha256"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// outcome is the per-item result of normalization.
type outcome int

const (
	outcomeStored outcome = iota
	outcomeDeduplicated
)

// Normalizer cleans candidate items, deduplicates them against history and
// writes canonical records through the store.
type Normalizer struct {
	store       ingest.RecordStore
	snapshots   ingest.SnapshotStore
	dedupWindow time.Duration
	logger      *zap.Logger
}

// New builds a Normalizer. snapshots may be nil to disable raw archiving.
func New(store ingest.RecordStore, snapshots ingest.SnapshotStore, dedupWindow time.Duration, logger *zap.Logger) *Normalizer {
	if dedupWindow <= 0 {
		dedupWindow = 14 * 24 * time.Hour
	}
	return &Normalizer{
		store:       store,
		snapshots:   snapshots,
		dedupWindow: dedupWindow,
		logger:      logger.Named("normalizer"),
	}
}

// Process normalizes one source's candidate items, updating the run counters
// in place. Item-level failures are contained here; only persistence failures
// propagate, since those abort the run.
func (n *Normalizer) Process(
	ctx context.Context,
	source ingest.SourceID,
	items []ingest.CandidateItem,
	run ingest.RunContext,
	counters *ingest.SourceCounters,
) error {
	for _, item := range items {
		counters.Attempted++
		result, err := n.processItem(ctx, source, item, run)
		if err != nil {
			if ingest.IsClass(err, ingest.ClassPersistence) {
				return err
			}
			counters.Failed++
			ingest.Failures.WithLabelValues(string(source), string(ingest.Classify(err))).Inc()
			n.logger.Debug("item discarded",
				zap.String("source", string(source)),
				zap.String("external_id", item.ExternalID),
				zap.Error(err))
			continue
		}
		switch result {
		case outcomeDeduplicated:
			counters.Deduplicated++
			ingest.ItemsDeduplicated.WithLabelValues(string(source)).Inc()
		default:
			counters.Extracted++
			ingest.ItemsExtracted.WithLabelValues(string(source)).Inc()
		}
	}
	return nil
}

func (n *Normalizer) processItem(
	ctx context.Context,
	source ingest.SourceID,
	item ingest.CandidateItem,
	run ingest.RunContext,
) (outcome, error) {
	text := item.Text
	if text == "" {
		text = CleanText(item.RawHTML)
	} else {
		text = collapse(text)
	}
	title := collapse(item.Title)
	if text == "" && title != "" {
		// Headline-only cards still carry signal.
		text = title
	}
	if text == "" {
		return 0, ingest.EmptyContent("no text after stripping")
	}

	capturedAt := run.BatchDate
	fingerprint := sha256.Fingerprint(string(source), text)

	metadata := make(map[string]string, len(item.Metadata)+3)
	for k, v := range item.Metadata {
		metadata[k] = v
	}
	metadata["position"] = fmt.Sprintf("%d", item.Position)
	metadata["run_id"] = run.RunID

	language := source.ExpectedLanguage()
	if detected := DetectLanguage(text); detected != "" && detected != language {
		// Data-quality signal, not a gate.
		metadata["language_detected"] = detected
	}

	existing, err := n.store.FindByExternalID(ctx, source, item.ExternalID)
	if err != nil {
		return 0, ingest.PersistenceFailure(fmt.Errorf("lookup %s/%s: %w", source, item.ExternalID, err))
	}

	if existing == nil {
		// New external id: suppress near-duplicates inside the trailing window.
		since := capturedAt.Add(-n.dedupWindow)
		dup, err := n.store.HasRecentHash(ctx, source, fingerprint, since)
		if err != nil {
			return 0, ingest.PersistenceFailure(fmt.Errorf("dedup lookup: %w", err))
		}
		if dup {
			return outcomeDeduplicated, nil
		}
	}

	if n.snapshots != nil && item.RawHTML != "" {
		path := fmt.Sprintf("%s/%s.html", source, fingerprint[:16])
		uri, err := n.snapshots.PutObject(ctx, path, "text/html; charset=utf-8", []byte(item.RawHTML))
		if err != nil {
			// Archiving is best effort; the record is the artifact of record.
			n.logger.Warn("snapshot archive failed", zap.String("source", string(source)), zap.Error(err))
		} else {
			metadata["snapshot_uri"] = uri
		}
	}

	record := ingest.Record{
		Source:           source,
		ExternalID:       item.ExternalID,
		CapturedAt:       capturedAt,
		PublishedAt:      ParsePublished(source, item.PublishedRaw, capturedAt),
		Title:            title,
		OriginalText:     text,
		OriginalLanguage: language,
		NormalizedHash:   fingerprint,
		Metadata:         metadata,
	}
	if _, err := n.store.Upsert(ctx, record); err != nil {
		return 0, ingest.PersistenceFailure(fmt.Errorf("upsert %s/%s: %w", source, item.ExternalID, err))
	}
	return outcomeStored, nil
}

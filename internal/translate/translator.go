package translate

import (
	"context"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// minTranslatableRunes mirrors the provider's behavior: shorter inputs come
// back empty, which is a legitimate outcome, not an error.
const minTranslatableRunes = 3

// Batch walks untranslated records in batches and fills their translation
// fields. One record's failure never blocks the rest of the batch; failures
// stay untranslated and are retried on the next run.
type Batch struct {
	store      ingest.RecordStore
	translator ingest.Translator
	batchSize  int
	targetLang string
	logger     *zap.Logger
}

// NewBatch builds a batch processor.
func NewBatch(store ingest.RecordStore, translator ingest.Translator, batchSize int, targetLang string, logger *zap.Logger) *Batch {
	if batchSize <= 0 {
		batchSize = 25
	}
	if targetLang == "" {
		targetLang = ingest.TargetLanguage
	}
	return &Batch{
		store:      store,
		translator: translator,
		batchSize:  batchSize,
		targetLang: targetLang,
		logger:     logger.Named("translator"),
	}
}

// Run translates every pending record. Idempotent: records already carrying a
// translation are never listed, and re-running on a fully translated store is
// a no-op. Deferrals are counted per source so the run report can surface
// them.
func (b *Batch) Run(ctx context.Context) (translated int, deferred map[ingest.SourceID]int, err error) {
	deferred = make(map[ingest.SourceID]int)
	attempted := make(map[string]struct{})
	pending := 0
	for {
		// Deferred records stay untranslated and keep their slot in the
		// listing, so the fetch window grows past them to reach fresh work.
		records, err := b.store.ListUntranslated(ctx, b.batchSize+pending)
		if err != nil {
			return translated, deferred, ingest.PersistenceFailure(err)
		}

		progress := false
		for _, rec := range records {
			key := string(rec.Source) + "/" + rec.ExternalID
			if _, done := attempted[key]; done {
				continue
			}
			attempted[key] = struct{}{}
			progress = true

			if rec.Translated() {
				continue
			}
			if err := b.translateRecord(ctx, rec); err != nil {
				if ingest.IsClass(err, ingest.ClassPersistence) {
					return translated, deferred, err
				}
				deferred[rec.Source]++
				pending++
				ingest.TranslationsFailed.Inc()
				b.logger.Warn("translation deferred",
					zap.String("source", string(rec.Source)),
					zap.String("external_id", rec.ExternalID),
					zap.Error(err))
				continue
			}
			translated++
		}

		if !progress {
			return translated, deferred, nil
		}
	}
}

func (b *Batch) translateRecord(ctx context.Context, rec ingest.Record) error {
	text, err := b.render(ctx, rec.OriginalText, rec.OriginalLanguage)
	if err != nil {
		return err
	}
	title := ""
	if rec.Title != "" {
		if title, err = b.render(ctx, rec.Title, rec.OriginalLanguage); err != nil {
			return err
		}
	}
	if err := b.store.SetTranslation(ctx, rec.Source, rec.ExternalID, title, text, b.targetLang); err != nil {
		return ingest.PersistenceFailure(err)
	}
	return nil
}

func (b *Batch) render(ctx context.Context, text, sourceLang string) (string, error) {
	if len([]rune(text)) < minTranslatableRunes {
		return "", nil
	}
	return b.translator.Translate(ctx, text, sourceLang, b.targetLang)
}

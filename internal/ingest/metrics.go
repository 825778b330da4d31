package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsExtracted tracks candidate items successfully normalized, per source.
	ItemsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_items_extracted_total",
		Help: "The total number of items extracted and stored, labeled by source.",
	}, []string{"source"})
	// ItemsDeduplicated tracks near-duplicates suppressed inside the dedup window.
	ItemsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_items_deduplicated_total",
		Help: "The total number of near-duplicate items discarded, labeled by source.",
	}, []string{"source"})
	// Failures tracks classified failures, per source and class.
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_failures_total",
		Help: "The total number of classified failures, labeled by source and class.",
	}, []string{"source", "class"})
	// Retries tracks governor retry attempts per source.
	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_governor_retries_total",
		Help: "The total number of retries performed by the governor, labeled by source.",
	}, []string{"source"})
	// Rotations tracks forced session identity rotations per source.
	Rotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_session_rotations_total",
		Help: "The total number of session identity rotations, labeled by source.",
	}, []string{"source"})
	// Runs tracks finished runs by terminal status.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "The total number of pipeline runs, labeled by terminal status.",
	}, []string{"status"})
	// TranslationsFailed tracks translation provider failures.
	TranslationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_translations_failed_total",
		Help: "The total number of record translations that failed and were deferred.",
	})
)

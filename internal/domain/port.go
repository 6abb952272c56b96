package domain

import (
	"context"
	"errors"
)

// ErrMalformedInput is wrapped by every hard input-validation failure.
// All other conditions are recoverable and reported through result meta.
var ErrMalformedInput = errors.New("malformed input")

// TranslationPort resolves English translations for marker enrichment.
type TranslationPort interface {
	// Lookup returns the translation keyed by (surah number, ayah number).
	// A failed fetch degrades to an empty map, never an error that aborts a run.
	Lookup(ctx context.Context) (map[AyahKey]string, error)
}

// CachePort stores finished day payloads keyed by day (and optional part).
type CachePort interface {
	GetDayPayload(ctx context.Context, day, part int) ([]byte, error)
	SetDayPayload(ctx context.Context, day, part int, payload []byte) error
}

// NotifierPort announces a finished day run to operators.
type NotifierPort interface {
	NotifyDaySummary(ctx context.Context, summary DaySummary) error
}

// DaySummary is the operator-facing digest of one processed day.
type DaySummary struct {
	Day            int
	Part           int
	MarkerCount    int
	HighCount      int
	AmbiguousCount int
	InferredCount  int
	ManualCount    int
	FirstAyah      string
	LastAyah       string
	ElapsedSeconds float64
}

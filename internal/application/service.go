package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
	"github.com/Himikid/andalus-taraweeh/internal/quran"
)

// Service orchestrates one day's alignment run: transcript cleaning, the
// core engine, marker enrichment, reciter mapping, caching and notification.
// All I/O lives here; the engine itself stays pure.
type Service struct {
	log          zerolog.Logger
	translations domain.TranslationPort
	cache        domain.CachePort
	notifier     domain.NotifierPort
}

func NewService(log zerolog.Logger, translations domain.TranslationPort, cache domain.CachePort, notifier domain.NotifierPort) *Service {
	return &Service{
		log:          log,
		translations: translations,
		cache:        cache,
		notifier:     notifier,
	}
}

// ProcessDayRequest carries the in-memory inputs of one run. Callers load
// files and feed them here; the service never touches the filesystem.
type ProcessDayRequest struct {
	Day              int
	Part             int
	Segments         []domain.TranscriptSegment
	Index            *quran.Index
	Config           quran.Config
	Overrides        *domain.DayOverrides
	ReciterWindows   []domain.ReciterWindow
	PresetResetTimes []float64
}

// DayPayload is the serialized output consumed by the reel tooling.
type DayPayload struct {
	Day     int             `json:"day"`
	Part    int             `json:"part,omitempty"`
	Markers []domain.Marker `json:"markers"`
	Meta    PayloadMeta     `json:"meta"`
}

type PayloadMeta struct {
	quran.Meta

	GeneratedAt     string             `json:"generated_at"`
	RunID           string             `json:"run_id"`
	StageTimings    map[string]float64 `json:"pipeline_timings_seconds"`
	SegmentsRaw     int                `json:"transcript_segments_raw"`
	SegmentsCleaned int                `json:"transcript_segments_for_matching"`
}

const totalStages = 6

// ProcessDay runs the full day pipeline and returns the output payload.
func (s *Service) ProcessDay(ctx context.Context, req ProcessDayRequest) (*DayPayload, error) {
	started := time.Now()
	timings := make(map[string]float64)
	stageIndex := 0

	stage := func(label string) func() {
		stageIndex++
		percent := stageIndex * 100 / totalStages
		s.log.Info().Int("stage", stageIndex).Int("total", totalStages).Int("percent", percent).Msgf("%s...", label)
		begun := time.Now()
		return func() {
			elapsed := time.Since(begun).Seconds()
			timings[label] = roundSeconds(elapsed)
			s.log.Info().Float64("seconds", timings[label]).Msgf("%s done", label)
		}
	}

	done := stage("clean transcript")
	segments := quran.CleanTranscript(req.Segments, req.Config.StrictNormalization)
	done()

	done = stage("match ayah markers")
	result, err := quran.Align(quran.AlignInput{
		Segments:         segments,
		Index:            req.Index,
		Config:           req.Config,
		Overrides:        req.Overrides,
		Part:             req.Part,
		PresetResetTimes: req.PresetResetTimes,
	})
	if err != nil {
		return nil, fmt.Errorf("align day %d: %w", req.Day, err)
	}
	done()

	done = stage("enrich marker texts")
	s.enrichMarkers(ctx, req.Index, result.Markers)
	done()

	done = stage("map reciters")
	mapReciters(result.Markers, req.ReciterWindows)
	done()

	payload := &DayPayload{
		Day:     req.Day,
		Part:    req.Part,
		Markers: result.Markers,
		Meta: PayloadMeta{
			Meta:            result.Meta,
			GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
			RunID:           uuid.NewString(),
			StageTimings:    timings,
			SegmentsRaw:     len(req.Segments),
			SegmentsCleaned: len(segments),
		},
	}

	done = stage("cache payload")
	s.cachePayload(ctx, payload)
	done()

	done = stage("notify operators")
	s.notify(ctx, payload, time.Since(started).Seconds())
	done()

	return payload, nil
}

// enrichMarkers fills each marker's Arabic text from the corpus and English
// text from the translation lookup. Translation failures degrade silently.
func (s *Service) enrichMarkers(ctx context.Context, idx *quran.Index, markers []domain.Marker) {
	var lookup map[domain.AyahKey]string
	if s.translations != nil {
		var err error
		lookup, err = s.translations.Lookup(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("translation lookup failed, continuing without english text")
			lookup = nil
		}
	}

	for i := range markers {
		key := markers[i].Key()
		if entry := idx.EntryByKey(key); entry != nil {
			markers[i].ArabicText = entry.Text
		}
		if text, ok := lookup[key]; ok {
			markers[i].EnglishText = text
		}
	}
}

// mapReciters labels each marker with the reciter window it falls inside.
func mapReciters(markers []domain.Marker, windows []domain.ReciterWindow) {
	if len(windows) == 0 {
		return
	}
	for i := range markers {
		assigned := "Unknown"
		for _, window := range windows {
			if window.Start <= markers[i].Time && markers[i].Time < window.End {
				if window.Reciter != "" {
					assigned = window.Reciter
				}
				break
			}
		}
		markers[i].Reciter = assigned
	}
}

func (s *Service) cachePayload(ctx context.Context, payload *DayPayload) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("marshal payload for cache failed")
		return
	}
	if err := s.cache.SetDayPayload(ctx, payload.Day, payload.Part, data); err != nil {
		s.log.Warn().Err(err).Msg("cache day payload failed")
	}
}

func (s *Service) notify(ctx context.Context, payload *DayPayload, elapsed float64) {
	if s.notifier == nil {
		return
	}

	summary := domain.DaySummary{
		Day:            payload.Day,
		Part:           payload.Part,
		MarkerCount:    len(payload.Markers),
		ElapsedSeconds: roundSeconds(elapsed),
	}
	for i := range payload.Markers {
		switch payload.Markers[i].Quality {
		case domain.QualityHigh:
			summary.HighCount++
		case domain.QualityAmbiguous:
			summary.AmbiguousCount++
		case domain.QualityInferred:
			summary.InferredCount++
		case domain.QualityManual:
			summary.ManualCount++
		}
	}
	if len(payload.Markers) > 0 {
		first, last := payload.Markers[0], payload.Markers[len(payload.Markers)-1]
		summary.FirstAyah = fmt.Sprintf("%s %d", first.Surah, first.Ayah)
		summary.LastAyah = fmt.Sprintf("%s %d", last.Surah, last.Ayah)
	}

	if err := s.notifier.NotifyDaySummary(ctx, summary); err != nil {
		s.log.Warn().Err(err).Msg("notify day summary failed")
	}
}

func roundSeconds(v float64) float64 {
	return float64(int(v*100)) / 100
}

package quran

import (
	"math"
	"strings"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

const (
	lowDataMinDensity      = 0.07
	lowDataMaxSilence      = 20.0
	gapSearchMinRunes      = 10
	strongAnchorConfidence = 0.70
	inferredConfidenceMin  = 0.56
	inferredConfidenceMax  = 0.60
	tokenSecondsPerWord    = 0.48
	ayahDurationMinSeconds = 6.0
	ayahDurationMaxSeconds = 95.0
	ayahDurationOccupancy  = 0.72
)

// gapFiller synthesizes markers for ayat the matcher skipped, bounded by two
// anchors. Strategies run in order: local forward search, wide forward
// re-search, then interpolation with pacing checks.
type gapFiller struct {
	cfg      Config
	idx      *Index
	segments []domain.TranscriptSegment
	views    []segmentView
}

func newGapFiller(cfg Config, idx *Index, segments []domain.TranscriptSegment, views []segmentView) *gapFiller {
	return &gapFiller{cfg: cfg, idx: idx, segments: segments, views: views}
}

// gapHit is a successful evidence search inside a time window.
type gapHit struct {
	start      int
	end        int
	quality    domain.Quality
	confidence float64
}

// findBestTimestamp searches the transcript window for the ayah and grades
// the best evidence. Thresholds arrive pre-relaxed by the caller.
func (g *gapFiller) findBestTimestamp(entry *domain.AyahEntry, windowStart, windowEnd, expected int, minScore, minOverlap, minConfidence, ambiguousScore, ambiguousConfidence float64) *gapHit {
	if windowEnd <= windowStart {
		return nil
	}

	topIndex := -1
	topScore, secondScore := -1.0, -1.0
	topOverlap := 0.0
	for i := range g.segments {
		segment := &g.segments[i]
		if segment.End < float64(windowStart) || segment.Start > float64(windowEnd) {
			continue
		}
		normalized := g.views[i].normalized
		if len([]rune(normalized)) < gapSearchMinRunes {
			continue
		}
		score, overlap := scoreAgainstEntry(normalized, entry)
		if score > topScore {
			secondScore = topScore
			topScore = score
			topIndex = i
			topOverlap = overlap
		} else if score > secondScore {
			secondScore = score
		}
	}
	if topIndex < 0 || topScore < ambiguousScore {
		return nil
	}

	start, end := g.onsetInSegment(topIndex, entry)
	margin := math.Max(0, topScore-math.Max(0, secondScore))
	windowSpan := math.Max(1, float64(windowEnd-windowStart))
	proximity := 1 - math.Min(1, math.Abs(float64(start-expected))/windowSpan)
	confidence := 0.5*(topScore/100) + 0.2*math.Min(1, margin/20) + 0.2*topOverlap + 0.1*proximity

	isHigh := topScore >= minScore && topOverlap >= minOverlap && confidence >= minConfidence
	isAmbiguous := topScore >= ambiguousScore && confidence >= ambiguousConfidence
	if !isHigh && !isAmbiguous {
		return nil
	}

	bounded := start
	if bounded < windowStart {
		bounded = windowStart
	}
	if bounded > windowEnd {
		bounded = windowEnd
	}
	if end < bounded {
		end = bounded
	}
	quality := domain.QualityHigh
	if !isHigh {
		quality = domain.QualityAmbiguous
	}
	return &gapHit{start: bounded, end: end, quality: quality, confidence: round3(confidence)}
}

func (g *gapFiller) onsetInSegment(segmentIndex int, entry *domain.AyahEntry) (int, int) {
	if res, ok := earliestAnchorHit(g.views[segmentIndex].words, entry); ok {
		return int(math.Round(res.start)), int(math.Round(res.end))
	}
	return int(math.Round(g.segments[segmentIndex].Start)), int(math.Round(g.segments[segmentIndex].End))
}

// hasLowDataGap reports whether the transcript between two times is too thin
// to support inference: low speech density or a long silence.
func (g *gapFiller) hasLowDataGap(startSec, endSec int) bool {
	span := float64(endSec - startSec)
	if span <= 0 {
		return false
	}

	covered := 0.0
	lastEnd := float64(startSec)
	maxSilence := 0.0
	for i := range g.segments {
		segment := &g.segments[i]
		if segment.End <= float64(startSec) || segment.Start >= float64(endSec) {
			continue
		}
		from := math.Max(segment.Start, float64(startSec))
		to := math.Min(segment.End, float64(endSec))
		covered += math.Max(0, to-from)
		if silence := from - lastEnd; silence > maxSilence {
			maxSilence = silence
		}
		if to > lastEnd {
			lastEnd = to
		}
	}
	if silence := float64(endSec) - lastEnd; silence > maxSilence {
		maxSilence = silence
	}
	return covered/span < lowDataMinDensity || maxSilence > lowDataMaxSilence
}

func isStrongAnchor(m *domain.Marker) bool {
	if m.Quality == domain.QualityManual {
		return true
	}
	return m.Quality == domain.QualityHigh && m.Confidence >= strongAnchorConfidence
}

func (g *gapFiller) weakLocalSupport(entry *domain.AyahEntry, windowStart, windowEnd int) bool {
	minScore := g.cfg.AmbiguousMinScore - 8
	minOverlap := g.cfg.MinOverlap - 0.05
	for i := range g.segments {
		segment := &g.segments[i]
		if segment.End < float64(windowStart) || segment.Start > float64(windowEnd) {
			continue
		}
		normalized := g.views[i].normalized
		if len([]rune(normalized)) < gapSearchMinRunes {
			continue
		}
		score, overlap := scoreAgainstEntry(normalized, entry)
		if score >= minScore && overlap >= minOverlap {
			return true
		}
	}
	return false
}

func containsReset(resets []float64, startSec, endSec int) bool {
	for _, r := range resets {
		if r > float64(startSec) && r < float64(endSec) {
			return true
		}
	}
	return false
}

// ayahDurationEstimate approximates how long an ayah takes to recite from its
// canonical token count.
func ayahDurationEstimate(entry *domain.AyahEntry) float64 {
	if entry == nil {
		return ayahDurationMinSeconds
	}
	count := len(strings.Fields(entry.Normalized))
	return math.Max(ayahDurationMinSeconds, math.Min(ayahDurationMaxSeconds, float64(count)*tokenSecondsPerWord))
}

// fillBetween synthesizes markers for the missing ayat between two same-surah
// anchors. enforceWeak forces the weak-local-support gate regardless of the
// anchor pair's strength; aggressive widens the re-search before giving up.
func (g *gapFiller) fillBetween(left, right *domain.Marker, existing func(domain.AyahKey) bool, resets []float64, enforceWeak, aggressive bool) []domain.Marker {
	missing := right.Ayah - left.Ayah - 1
	if missing <= 0 {
		return nil
	}
	gap := right.Time - left.Time
	if gap <= g.cfg.MinGapSeconds || gap > g.cfg.MaxInferGapSeconds {
		return nil
	}

	pairHasReset := containsReset(resets, left.Time, right.Time)
	searchOnly := false
	if missing > g.cfg.MaxInferGapAyat {
		if !pairHasReset {
			return nil
		}
		searchOnly = true
	}

	strongPair := isStrongAnchor(left) && isStrongAnchor(right)
	if g.hasLowDataGap(left.Time, right.Time) && !strongPair {
		return nil
	}

	step := float64(gap) / float64(missing+1)
	var added []domain.Marker
	prevTime := left.Time
	prevEntry := g.idx.EntryByKey(left.Key())

	for offset := 1; offset <= missing; offset++ {
		ayah := left.Ayah + offset
		key := domain.AyahKey{SurahNumber: left.SurahNumber, Ayah: ayah}
		entry := g.idx.EntryByKey(key)
		if entry == nil || existing(key) {
			continue
		}

		expected := left.Time + int(math.Round(step*float64(offset)))
		half := int(math.Max(10, math.Round(step*0.8)))
		windowStart := maxInt(left.Time+g.cfg.MinGapSeconds, expected-half)
		windowEnd := minInt(right.Time-g.cfg.MinGapSeconds, expected+half)

		hit := g.findBestTimestamp(entry, windowStart, windowEnd, expected,
			g.cfg.MinScore-4, g.cfg.MinOverlap-0.06, g.cfg.MinConfidence-0.08,
			g.cfg.AmbiguousMinScore-4, g.cfg.AmbiguousMinConfidence-0.04)
		if hit == nil {
			hit = g.findBestTimestamp(entry, windowStart, windowEnd, expected,
				g.cfg.MinScore-10, g.cfg.MinOverlap-0.12, g.cfg.MinConfidence-0.14,
				g.cfg.AmbiguousMinScore-8, g.cfg.AmbiguousMinConfidence-0.08)
		}
		if hit == nil && (strongPair || aggressive) {
			// Re-search the whole remaining span before resorting to interpolation.
			hit = g.findBestTimestamp(entry, prevTime+g.cfg.MinGapSeconds, right.Time-g.cfg.MinGapSeconds, expected,
				g.cfg.MinScore-10, g.cfg.MinOverlap-0.12, g.cfg.MinConfidence-0.14,
				g.cfg.AmbiguousMinScore-8, g.cfg.AmbiguousMinConfidence-0.08)
		}

		var marker domain.Marker
		if hit != nil {
			marker = g.buildMarker(entry, hit.start, hit.end, hit.quality, hit.confidence)
		} else {
			if searchOnly {
				continue
			}
			if step < g.cfg.MinInferStepSeconds || step > g.cfg.MaxInferStepSeconds {
				continue
			}
			gate := g.cfg.RequireWeakSupportForInferred || enforceWeak
			if gate && (enforceWeak || !strongPair) && !g.weakLocalSupport(entry, windowStart, windowEnd) {
				continue
			}

			inferredTime := expected
			for _, reset := range resets {
				if float64(inferredTime) > reset && float64(inferredTime) <= reset+resetDeferralSeconds {
					inferredTime = int(reset) + interpolationResetShiftSeconds
				}
			}
			floor := prevTime + int(math.Round(ayahDurationEstimate(prevEntry)*ayahDurationOccupancy))
			if inferredTime < floor {
				inferredTime = floor
			}
			if inferredTime <= prevTime {
				inferredTime = prevTime + 1
			}
			if limit := right.Time - 1; inferredTime > limit {
				inferredTime = limit
			}

			confidence := math.Min(left.Confidence, right.Confidence)
			confidence = math.Min(confidence, inferredConfidenceMax)
			confidence = math.Max(confidence, inferredConfidenceMin)
			marker = g.buildMarker(entry, inferredTime, inferredTime, domain.QualityInferred, round3(confidence))
		}

		added = append(added, marker)
		prevTime = marker.Time
		prevEntry = entry
	}
	return added
}

// leadingBackfill synthesizes markers for ayat 1..first-1 when the first
// anchor starts mid-surah, searching the pre-anchor audio before falling back
// to interpolated placement.
func (g *gapFiller) leadingBackfill(first *domain.Marker, existing func(domain.AyahKey) bool) []domain.Marker {
	if first.Ayah <= 1 || first.Ayah-1 > g.cfg.MaxLeadingInferAyat {
		return nil
	}

	timeStep := maxInt(4, int(math.Round(float64(first.Time)/float64(maxInt(1, first.Ayah)))))
	leadingStep := minInt(8, timeStep)
	var added []domain.Marker

	for ayah := first.Ayah - 1; ayah >= 1; ayah-- {
		key := domain.AyahKey{SurahNumber: first.SurahNumber, Ayah: ayah}
		entry := g.idx.EntryByKey(key)
		if entry == nil || existing(key) {
			continue
		}

		offset := first.Ayah - ayah
		expected := maxInt(0, first.Time-leadingStep*offset)
		half := maxInt(8, timeStep)
		windowStart := maxInt(0, expected-half)
		windowEnd := minInt(maxInt(0, first.Time-g.cfg.MinGapSeconds), expected+half)

		hit := g.findBestTimestamp(entry, windowStart, windowEnd, expected,
			g.cfg.MinScore, math.Max(g.cfg.MinOverlap, 0.18), g.cfg.MinConfidence,
			g.cfg.AmbiguousMinScore, g.cfg.AmbiguousMinConfidence)

		var marker domain.Marker
		if hit != nil {
			start := minInt(maxInt(windowStart, hit.start), maxInt(0, first.Time-g.cfg.MinGapSeconds))
			marker = g.buildMarker(entry, start, maxInt(start, hit.end), hit.quality, hit.confidence)
		} else {
			if g.cfg.RequireWeakSupportForInferred && !g.weakLocalSupport(entry, windowStart, windowEnd) {
				continue
			}
			confidence := math.Min(first.Confidence, 0.58)
			confidence = math.Max(confidence, inferredConfidenceMin)
			start := minInt(expected, maxInt(0, first.Time-g.cfg.MinGapSeconds))
			marker = g.buildMarker(entry, start, start, domain.QualityInferred, round3(confidence))
		}
		added = append(added, marker)
	}
	return added
}

// tailFill backfills the remaining ayat of the previous surah before a
// cross-surah transition. It fails when the terminal ayah cannot be reached
// with plausible pacing inside the available span.
func (g *gapFiller) tailFill(prev *domain.Marker, transitionStart int, existing func(domain.AyahKey) bool) ([]domain.Marker, bool) {
	total := g.idx.SurahTotal(prev.SurahNumber)
	if total == 0 {
		return nil, false
	}
	missing := total - prev.Ayah
	if missing <= 0 {
		return nil, true
	}
	if missing > transitionTailMaxAyat {
		return nil, false
	}

	base := maxInt(prev.Time, prev.EndTime)
	step := float64(transitionStart-base) / float64(missing+1)
	if step < math.Max(2, g.cfg.MinInferStepSeconds) {
		return nil, false
	}

	var added []domain.Marker
	for offset := 1; offset <= missing; offset++ {
		ayah := prev.Ayah + offset
		key := domain.AyahKey{SurahNumber: prev.SurahNumber, Ayah: ayah}
		entry := g.idx.EntryByKey(key)
		if entry == nil {
			return nil, false
		}
		if existing(key) {
			continue
		}

		expected := base + int(math.Round(step*float64(offset)))
		half := int(math.Max(6, math.Round(step*0.8)))
		hit := g.findBestTimestamp(entry, maxInt(base+1, expected-half), minInt(transitionStart-1, expected+half), expected,
			g.cfg.MinScore-4, g.cfg.MinOverlap-0.06, g.cfg.MinConfidence-0.08,
			g.cfg.AmbiguousMinScore-4, g.cfg.AmbiguousMinConfidence-0.04)

		var marker domain.Marker
		if hit != nil {
			marker = g.buildMarker(entry, hit.start, hit.end, hit.quality, hit.confidence)
		} else {
			marker = g.buildMarker(entry, expected, expected, domain.QualityInferred, inferredConfidenceMin)
		}
		added = append(added, marker)
	}
	return added, true
}

func (g *gapFiller) buildMarker(entry *domain.AyahEntry, start, end int, quality domain.Quality, confidence float64) domain.Marker {
	if end < start {
		end = start
	}
	return domain.Marker{
		Time:        start,
		StartTime:   start,
		EndTime:     end,
		Surah:       entry.Surah,
		SurahNumber: entry.SurahNumber,
		Ayah:        entry.Ayah,
		Juz:         JuzFor(entry.SurahNumber, entry.Ayah),
		Quality:     quality,
		Confidence:  confidence,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

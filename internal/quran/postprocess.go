package quran

import (
	"math"
	"sort"
	"strings"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

const (
	dedupeWindowSeconds        = 90
	weakBoundaryProximity      = 3
	weakBoundaryNextDistance   = 25
	weakBoundaryMinImprovement = 0.08
	inferredResearchRadius     = 120
	weakRefineMinImprovement   = 0.04
	denseRunMinCount           = 4
	denseRunMinSpreadFactor    = 3
	weakDurationOccupancy      = 0.70
	weakPairMinGapSeconds      = 12
	pointMarkerMaxExtension    = 90
	longAyahTokenThreshold     = 45
	longAyahFloorMinSeconds    = 18
	longAyahFloorMaxSeconds    = 180
	longAyahSecondsPerToken    = 0.80
)

// postProcessor applies the fixed pass chain that turns the raw marker list
// into one that satisfies the output invariants. Every pass is total and
// idempotent on already-normalized input.
type postProcessor struct {
	cfg    Config
	idx    *Index
	filler *gapFiller
	resets []float64
}

func newPostProcessor(cfg Config, idx *Index, filler *gapFiller, resets []float64) *postProcessor {
	return &postProcessor{cfg: cfg, idx: idx, filler: filler, resets: resets}
}

func (p *postProcessor) run(markers []domain.Marker) []domain.Marker {
	passes := []func([]domain.Marker) []domain.Marker{
		p.coverageFill,
		p.dedupeLocalWindow,
		p.resolveOverlaps,
		p.refineWeakBoundaries,
		p.researchInferred,
		p.deferPostReset,
		p.weakRefineBetweenAnchors,
		p.redistributeDenseWeakRuns,
		p.stabilizeWeakDurations,
		p.extendPointMarkers,
		p.pruneUnrealisticProgression,
		p.enforceSurahTransitionOrder,
		p.enforceLongAyahInferredFloor,
		p.enforceSequentialAyahOrder,
		p.finalSort,
	}
	for _, pass := range passes {
		markers = pass(markers)
	}
	return markers
}

func isWeak(m *domain.Marker) bool {
	return m.Quality == domain.QualityAmbiguous || m.Quality == domain.QualityInferred
}

// coverageFill closes remaining ayah gaps between adjacent same-surah
// markers of any quality, with the weak-local-support gate enforced.
func (p *postProcessor) coverageFill(markers []domain.Marker) []domain.Marker {
	if len(markers) == 0 {
		return markers
	}
	sortMarkers(markers)

	present := make(map[domain.AyahKey]struct{}, len(markers))
	for i := range markers {
		present[markers[i].Key()] = struct{}{}
	}
	exists := func(key domain.AyahKey) bool {
		_, ok := present[key]
		return ok
	}

	var additions []domain.Marker
	for i := 1; i < len(markers); i++ {
		left, right := &markers[i-1], &markers[i]
		if left.SurahNumber != right.SurahNumber || right.Ayah <= left.Ayah+1 {
			continue
		}
		filled := p.filler.fillBetween(left, right, exists, p.resets, true, false)
		for _, m := range filled {
			present[m.Key()] = struct{}{}
		}
		additions = append(additions, filled...)
	}
	if len(additions) == 0 {
		return markers
	}
	markers = append(markers, additions...)
	sortMarkers(markers)
	return markers
}

// dedupeLocalWindow collapses same-ayah markers that sit within the local
// time window, keeping the best by quality rank, confidence, earlier time.
func (p *postProcessor) dedupeLocalWindow(markers []domain.Marker) []domain.Marker {
	if len(markers) == 0 {
		return markers
	}
	sortMarkers(markers)

	deduped := markers[:0:0]
	for i := range markers {
		marker := markers[i]
		merged := false
		for j := len(deduped) - 1; j >= 0; j-- {
			if marker.Time-deduped[j].Time > dedupeWindowSeconds {
				break
			}
			if deduped[j].Key() != marker.Key() {
				continue
			}
			if supersedes(&marker, &deduped[j]) {
				deduped[j] = marker
			}
			merged = true
			break
		}
		if !merged {
			deduped = append(deduped, marker)
		}
	}
	return deduped
}

// resolveOverlaps delays the later of two overlapping forward-adjacent ayat
// unless it is strictly more confident, in which case the earlier span is
// trimmed instead. Manual markers are never moved.
func (p *postProcessor) resolveOverlaps(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := 1; i < len(markers); i++ {
		prev, next := &markers[i-1], &markers[i]
		if prev.SurahNumber != next.SurahNumber || next.Ayah != prev.Ayah+1 {
			continue
		}
		if next.Time >= prev.EndTime {
			continue
		}
		if next.Quality == domain.QualityManual || next.Confidence > prev.Confidence {
			if prev.EndTime > next.Time+1 && prev.Quality != domain.QualityManual {
				prev.EndTime = next.Time + 1
			}
			continue
		}
		next.SetStart(prev.EndTime + 1)
	}
	sortMarkers(markers)
	return markers
}

// refineWeakBoundaries re-searches weak markers squeezed against the previous
// marker's end when the next marker leaves a wide interior window. A later,
// stronger placement is accepted only on a clear confidence improvement.
func (p *postProcessor) refineWeakBoundaries(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := 1; i < len(markers)-1; i++ {
		m := &markers[i]
		if !isWeak(m) {
			continue
		}
		prev, next := &markers[i-1], &markers[i+1]
		if m.Time-prev.EndTime > weakBoundaryProximity {
			continue
		}
		if next.Time-m.Time <= weakBoundaryNextDistance {
			continue
		}
		entry := p.idx.EntryByKey(m.Key())
		if entry == nil {
			continue
		}
		hit := p.filler.findBestTimestamp(entry, prev.EndTime+1, next.Time-p.cfg.MinGapSeconds, m.Time,
			p.cfg.MinScore, p.cfg.MinOverlap, p.cfg.MinConfidence,
			p.cfg.AmbiguousMinScore, p.cfg.AmbiguousMinConfidence)
		if hit == nil || hit.start <= m.Time {
			continue
		}
		if hit.confidence < m.Confidence+weakBoundaryMinImprovement {
			continue
		}
		m.SetStart(hit.start)
		m.EndTime = maxInt(hit.end, hit.start)
		m.Quality = hit.quality
		m.Confidence = hit.confidence
	}
	sortMarkers(markers)
	return markers
}

// researchInferred widens the search around every inferred marker and
// upgrades it when real evidence is found nearby.
func (p *postProcessor) researchInferred(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := range markers {
		m := &markers[i]
		if m.Quality != domain.QualityInferred {
			continue
		}
		entry := p.idx.EntryByKey(m.Key())
		if entry == nil {
			continue
		}

		windowStart := m.Time - inferredResearchRadius
		windowEnd := m.Time + inferredResearchRadius
		if i > 0 && markers[i-1].SurahNumber == m.SurahNumber {
			windowStart = maxInt(windowStart, markers[i-1].Time+1)
		}
		if i < len(markers)-1 && markers[i+1].SurahNumber == m.SurahNumber {
			windowEnd = minInt(windowEnd, markers[i+1].Time-1)
		}

		hit := p.filler.findBestTimestamp(entry, windowStart, windowEnd, m.Time,
			p.cfg.MinScore, p.cfg.MinOverlap, p.cfg.MinConfidence,
			p.cfg.AmbiguousMinScore, p.cfg.AmbiguousMinConfidence)
		if hit == nil {
			continue
		}
		m.SetStart(hit.start)
		m.EndTime = maxInt(hit.end, hit.start)
		m.Quality = hit.quality
		m.Confidence = hit.confidence
	}
	sortMarkers(markers)
	return markers
}

// deferPostReset shifts weak markers out of the hold window that follows a
// recorded reset timestamp.
func (p *postProcessor) deferPostReset(markers []domain.Marker) []domain.Marker {
	if len(p.resets) == 0 {
		return markers
	}
	sortMarkers(markers)
	for i := range markers {
		m := &markers[i]
		if !isWeak(m) {
			continue
		}
		for _, reset := range p.resets {
			if float64(m.Time) > reset && float64(m.Time) <= reset+resetDeferralSeconds {
				m.SetStart(int(reset) + resetDeferralSeconds)
			}
		}
	}
	sortMarkers(markers)
	return markers
}

// weakRefineBetweenAnchors makes one more evidence pass for weak markers,
// bounded by the nearest same-surah anchors, at relaxed thresholds.
func (p *postProcessor) weakRefineBetweenAnchors(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := range markers {
		m := &markers[i]
		if !isWeak(m) {
			continue
		}
		entry := p.idx.EntryByKey(m.Key())
		if entry == nil {
			continue
		}

		windowStart := m.Time - inferredResearchRadius
		windowEnd := m.Time + inferredResearchRadius
		for j := i - 1; j >= 0; j-- {
			if markers[j].SurahNumber == m.SurahNumber && !isWeak(&markers[j]) {
				windowStart = maxInt(windowStart, markers[j].Time+p.cfg.MinGapSeconds)
				break
			}
		}
		for j := i + 1; j < len(markers); j++ {
			if markers[j].SurahNumber == m.SurahNumber && !isWeak(&markers[j]) {
				windowEnd = minInt(windowEnd, markers[j].Time-p.cfg.MinGapSeconds)
				break
			}
		}

		hit := p.filler.findBestTimestamp(entry, windowStart, windowEnd, m.Time,
			p.cfg.MinScore-4, p.cfg.MinOverlap-0.06, p.cfg.MinConfidence-0.08,
			p.cfg.AmbiguousMinScore-4, p.cfg.AmbiguousMinConfidence-0.04)
		if hit == nil || hit.confidence < m.Confidence+weakRefineMinImprovement {
			continue
		}
		m.SetStart(hit.start)
		m.EndTime = maxInt(hit.end, hit.start)
		m.Quality = hit.quality
		m.Confidence = hit.confidence
	}
	sortMarkers(markers)
	return markers
}

// redistributeDenseWeakRuns spreads clusters of weak markers evenly between
// their surrounding anchors when the anchors leave enough room.
func (p *postProcessor) redistributeDenseWeakRuns(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	i := 0
	for i < len(markers) {
		if !isWeak(&markers[i]) {
			i++
			continue
		}
		j := i
		for j < len(markers) && isWeak(&markers[j]) && markers[j].SurahNumber == markers[i].SurahNumber {
			j++
		}
		count := j - i
		span := markers[j-1].Time - markers[i].Time
		if count >= denseRunMinCount && span <= maxInt(8, count) {
			lowBound := 0
			if i > 0 {
				lowBound = markers[i-1].Time
			}
			highBound := markers[j-1].Time + p.cfg.MaxInferGapSeconds
			if j < len(markers) {
				highBound = markers[j].Time
			}
			available := highBound - lowBound
			if available >= denseRunMinSpreadFactor*count {
				for k := 0; k < count; k++ {
					t := lowBound + int(math.Round(float64(available)*float64(k+1)/float64(count+1)))
					markers[i+k].SetStart(t)
					markers[i+k].EndTime = t
				}
			}
		}
		i = j
	}
	sortMarkers(markers)
	return markers
}

// stabilizeWeakDurations stretches weak markers to occupy a sensible share of
// the local pacing step and spreads back-to-back weak pairs apart.
func (p *postProcessor) stabilizeWeakDurations(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	step := p.localStepEstimate(markers)

	for i := range markers {
		m := &markers[i]
		if !isWeak(m) || m.EndTime > m.Time {
			continue
		}
		end := m.Time + int(math.Round(step*weakDurationOccupancy))
		if i < len(markers)-1 && markers[i+1].SurahNumber == m.SurahNumber {
			end = minInt(end, markers[i+1].Time-1)
		}
		if end > m.EndTime {
			m.EndTime = end
		}
	}

	for i := 0; i < len(markers)-1; i++ {
		m, next := &markers[i], &markers[i+1]
		if !isWeak(m) || !isWeak(next) || m.SurahNumber != next.SurahNumber {
			continue
		}
		if next.Time-m.Time >= weakPairMinGapSeconds {
			continue
		}
		limit := math.MaxInt
		if i+2 < len(markers) {
			limit = markers[i+2].Time - 1
		}
		shifted := m.Time + weakPairMinGapSeconds
		if shifted < limit {
			next.SetStart(shifted)
		}
	}
	sortMarkers(markers)
	return markers
}

func (p *postProcessor) localStepEstimate(markers []domain.Marker) float64 {
	var deltas []float64
	for i := 1; i < len(markers); i++ {
		if markers[i].SurahNumber != markers[i-1].SurahNumber {
			continue
		}
		ayahGap := markers[i].Ayah - markers[i-1].Ayah
		timeGap := markers[i].Time - markers[i-1].Time
		if ayahGap <= 0 || timeGap <= 0 {
			continue
		}
		deltas = append(deltas, float64(timeGap)/float64(ayahGap))
	}
	if len(deltas) == 0 {
		return float64(p.cfg.MinGapSeconds)
	}
	sort.Float64s(deltas)
	return math.Max(4, math.Min(20, deltas[len(deltas)/2]))
}

// extendPointMarkers gives zero-length markers a span bounded by the next
// same-surah marker.
func (p *postProcessor) extendPointMarkers(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := range markers {
		m := &markers[i]
		if m.EndTime != m.Time {
			continue
		}
		limit := m.Time + pointMarkerMaxExtension
		for j := i + 1; j < len(markers); j++ {
			if markers[j].SurahNumber == m.SurahNumber {
				limit = minInt(limit, markers[j].Time-1)
				break
			}
		}
		if limit > m.EndTime {
			m.EndTime = limit
		}
	}
	return markers
}

// pruneUnrealisticProgression drops markers that would require implausibly
// many ayah advances for the elapsed wall time. Manual markers survive.
func (p *postProcessor) pruneUnrealisticProgression(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	kept := markers[:0:0]
	lastBySurah := make(map[int]domain.Marker)
	for i := range markers {
		m := markers[i]
		last, seen := lastBySurah[m.SurahNumber]
		if seen && m.Quality != domain.QualityManual {
			dt := m.Time - last.Time
			advance := m.Ayah - last.Ayah
			allowed := int(math.Ceil(float64(dt)/3)) + 2
			if advance > allowed {
				continue
			}
		}
		kept = append(kept, m)
		lastBySurah[m.SurahNumber] = m
	}
	return kept
}

// enforceSurahTransitionOrder shifts the early ayat of surah N+1 that start
// before surah N's terminal marker has had room to finish.
func (p *postProcessor) enforceSurahTransitionOrder(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)

	terminalBySurah := make(map[int]*domain.Marker)
	for i := range markers {
		m := &markers[i]
		if total := p.idx.SurahTotal(m.SurahNumber); total > 0 && m.Ayah == total {
			terminalBySurah[m.SurahNumber] = m
		}
	}

	for i := range markers {
		m := &markers[i]
		terminal := terminalBySurah[m.SurahNumber-1]
		if terminal == nil || m.Ayah > 6 || m.Quality == domain.QualityManual {
			continue
		}
		floor := terminal.StartTime + p.cfg.MinGapSeconds + (m.Ayah - 1)
		if m.Time < floor {
			m.SetStart(floor)
		}
	}
	sortMarkers(markers)
	return markers
}

// enforceLongAyahInferredFloor keeps an inferred marker from starting before
// a long previous ayah could plausibly have been recited.
func (p *postProcessor) enforceLongAyahInferredFloor(markers []domain.Marker) []domain.Marker {
	sortMarkers(markers)
	for i := 1; i < len(markers); i++ {
		m := &markers[i]
		if m.Quality != domain.QualityInferred {
			continue
		}
		prev := &markers[i-1]
		if prev.SurahNumber != m.SurahNumber {
			continue
		}
		entry := p.idx.EntryByKey(prev.Key())
		if entry == nil {
			continue
		}
		tokens := len(strings.Fields(entry.Normalized))
		if tokens < longAyahTokenThreshold {
			continue
		}
		floor := prev.StartTime + maxInt(longAyahFloorMinSeconds, minInt(longAyahFloorMaxSeconds, int(math.Round(float64(tokens)*longAyahSecondsPerToken))))
		if m.StartTime < floor {
			m.SetStart(floor)
		}
	}
	sortMarkers(markers)
	return markers
}

// enforceSequentialAyahOrder restores strict start-time monotonicity by ayah
// within each surah, nudging later non-manual ayat forward.
func (p *postProcessor) enforceSequentialAyahOrder(markers []domain.Marker) []domain.Marker {
	bySurah := make(map[int][]*domain.Marker)
	for i := range markers {
		m := &markers[i]
		bySurah[m.SurahNumber] = append(bySurah[m.SurahNumber], m)
	}

	for _, group := range bySurah {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Ayah < group[j].Ayah })
		lastTime := math.MinInt
		for _, m := range group {
			if m.Quality == domain.QualityManual {
				if m.Time <= lastTime {
					// A manual marker wins the slot; pull earlier non-manual
					// markers back below it instead of moving the manual one.
					back := m.Time
					for j := len(group) - 1; j >= 0; j-- {
						other := group[j]
						if other == m || other.Ayah > m.Ayah {
							continue
						}
						if other.Quality != domain.QualityManual && other.Time >= back {
							back = maxInt(0, back-1)
							other.SetStart(back)
						}
					}
				}
				lastTime = m.Time
				continue
			}
			if m.Time <= lastTime {
				shift := 1
				if m.Quality == domain.QualityInferred {
					shift = 2
				}
				m.SetStart(lastTime + shift)
			}
			lastTime = m.Time
		}
	}
	sortMarkers(markers)
	return markers
}

// finalSort globally dedupes by ayah identity and orders the list by
// (start time, surah number, ayah).
func (p *postProcessor) finalSort(markers []domain.Marker) []domain.Marker {
	bestByKey := make(map[domain.AyahKey]int, len(markers))
	deduped := markers[:0:0]
	for i := range markers {
		m := markers[i]
		if pos, ok := bestByKey[m.Key()]; ok {
			if supersedes(&m, &deduped[pos]) {
				deduped[pos] = m
			}
			continue
		}
		deduped = append(deduped, m)
		bestByKey[m.Key()] = len(deduped) - 1
	}
	sortMarkers(deduped)
	return deduped
}

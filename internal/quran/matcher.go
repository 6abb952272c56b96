package quran

import (
	"math"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// Counts collects run diagnostics reported in the result meta.
type Counts struct {
	Markers              int `json:"markers"`
	Segments             int `json:"segments"`
	StaleSegments        int `json:"stale_segments"`
	ResetMarkers         int `json:"reset_markers"`
	NonRecitationPhrases int `json:"non_recitation_phrases"`
	RepeatExtensions     int `json:"repeat_extensions"`
	RecoveryJumps        int `json:"recovery_jumps"`
	Reanchors            int `json:"reanchors"`
	InferredMarkers      int `json:"inferred_markers"`
}

// matcher is the sequential progression state machine. It consumes transcript
// segments in order, keeps a pointer into the corpus, and emits one marker per
// confidently identified ayah.
type matcher struct {
	cfg      Config
	idx      *Index
	segments []domain.TranscriptSegment
	views    []segmentView
	filler   *gapFiller

	markers   []domain.Marker
	positions map[domain.AyahKey]int

	pointer           int
	lastMarkerTime    int
	staleCount        int
	awaitingReacquire bool
	pauseHoldUntil    float64
	lockCount         int

	forcedStart int
	reanchors   []domain.ReanchorPoint
	resetTimes  []float64

	counts *Counts
}

func newMatcher(cfg Config, idx *Index, segments []domain.TranscriptSegment, views []segmentView, filler *gapFiller, forcedStart int, reanchors []domain.ReanchorPoint, presetResets []float64, counts *Counts) *matcher {
	return &matcher{
		cfg:            cfg,
		idx:            idx,
		segments:       segments,
		views:          views,
		filler:         filler,
		positions:      make(map[domain.AyahKey]int),
		pointer:        -1,
		lastMarkerTime: -1,
		forcedStart:    forcedStart,
		reanchors:      reanchors,
		resetTimes:     append([]float64(nil), presetResets...),
		counts:         counts,
	}
}

const reacquireLockAyat = 8

// run drives the per-segment loop. It is total: any transcript and corpus
// yield a (possibly empty) marker list.
func (m *matcher) run() ([]domain.Marker, []float64) {
	for i := range m.segments {
		m.processSegment(i)
	}
	m.counts.Markers = len(m.markers)
	return m.markers, m.resetTimes
}

func (m *matcher) processSegment(i int) {
	segment := &m.segments[i]

	m.applyReanchorSchedule(segment.Start)
	m.checkLongBreak(i)

	normalized := m.views[i].normalized
	if m.handleResetPhrase(segment, normalized) {
		return
	}

	variants := buildVariants(m.segments, m.views, i)
	if maxVariantLength(variants) < minMeaningfulVariant {
		return
	}

	if m.tryRepeatExtension(segment, variants) {
		return
	}

	if m.pointer < 0 {
		if !m.tryAcquisition(segment, variants) {
			m.staleCount++
			m.counts.StaleSegments++
		}
		return
	}

	if m.tryForward(segment, variants) {
		return
	}
	if !m.awaitingReacquire && m.tryRecovery(segment, variants) {
		return
	}

	m.staleCount++
	m.counts.StaleSegments++
}

// applyReanchorSchedule consumes every declared re-anchor point whose time
// has been reached, repositioning the pointer and forcing strict reacquire.
func (m *matcher) applyReanchorSchedule(segmentStart float64) {
	for len(m.reanchors) > 0 && float64(m.reanchors[0].Time) <= segmentStart {
		point := m.reanchors[0]
		m.reanchors = m.reanchors[1:]
		linear := m.idx.LinearIndex(domain.AyahKey{SurahNumber: point.SurahNumber, Ayah: point.Ayah})
		if linear < 0 {
			continue
		}
		m.pointer = linear - 1
		m.awaitingReacquire = true
		m.lockCount = reacquireLockAyat
		m.counts.Reanchors++
	}
}

func (m *matcher) checkLongBreak(i int) {
	if i == 0 {
		return
	}
	gap := m.segments[i].Start - m.segments[i-1].End
	if gap >= float64(m.cfg.LongBreakReacquireSeconds) {
		m.awaitingReacquire = true
		m.lockCount = reacquireLockAyat
	}
}

// handleResetPhrase detects Fatiha-like and non-recitation segments, records
// the reset timestamp and skips the segment.
func (m *matcher) handleResetPhrase(segment *domain.TranscriptSegment, normalized string) bool {
	if m.idx.isFatihaLike(normalized) {
		m.resetTimes = append(m.resetTimes, segment.Start)
		m.awaitingReacquire = true
		m.lockCount = reacquireLockAyat
		m.counts.ResetMarkers++
		return true
	}
	if m.idx.isNonRecitation(normalized) {
		m.resetTimes = append(m.resetTimes, segment.Start)
		m.awaitingReacquire = true
		m.pauseHoldUntil = segment.End + float64(m.cfg.NonRecitationHoldSeconds)
		m.counts.NonRecitationPhrases++
		return true
	}
	return false
}

// tryRepeatExtension checks whether the segment re-recites one of the most
// recently emitted ayat. A qualifying repeat extends that marker's end time
// without moving the pointer.
func (m *matcher) tryRepeatExtension(segment *domain.TranscriptSegment, variants []evidenceVariant) bool {
	if len(m.markers) == 0 || m.lastMarkerTime < 0 {
		return false
	}

	gapLimit := m.cfg.RepeatMaxGapSeconds
	if m.awaitingReacquire {
		gapLimit = reacquireRepeatMaxGapSeconds
	}
	if segment.Start-float64(m.lastMarkerTime) > float64(gapLimit) {
		return false
	}

	forwardBest := m.bestForwardProbe(variants)

	lookback := m.cfg.RepeatLookbackAyat
	first := len(m.markers) - 1 - lookback
	if first < 0 {
		first = 0
	}
	for pos := len(m.markers) - 1; pos >= first; pos-- {
		marker := &m.markers[pos]
		entry := m.idx.EntryByKey(marker.Key())
		if entry == nil {
			continue
		}
		cand, ok := evaluateEntry(entry, m.idx.LinearIndex(marker.Key()), variants)
		if !ok {
			continue
		}
		margin := math.Max(0, cand.adjusted-math.Max(0, forwardBest))
		confidence := 0.55*(cand.score/100) + 0.25*math.Min(1, margin/20) + 0.20*cand.overlap
		if cand.score < m.cfg.RepeatMinScore || cand.overlap < m.cfg.RepeatMinOverlap || confidence < m.cfg.RepeatMinConfidence {
			continue
		}
		if cand.adjusted < forwardBest+1 {
			continue
		}

		extendedEnd := int(math.Round(segment.End))
		if extendedEnd > marker.EndTime {
			marker.EndTime = extendedEnd
		}
		m.staleCount = 0
		m.counts.RepeatExtensions++
		return true
	}
	return false
}

func (m *matcher) bestForwardProbe(variants []evidenceVariant) float64 {
	best := -1.0
	if m.pointer < 0 {
		return best
	}
	for linear := m.pointer + 1; linear <= m.pointer+2 && linear < m.idx.Len(); linear++ {
		entry := m.idx.Entry(linear)
		if m.idx.IsExcludedSurah(entry) {
			continue
		}
		if cand, ok := evaluateEntry(entry, linear, variants); ok && cand.adjusted > best {
			best = cand.adjusted
		}
	}
	return best
}

// tryAcquisition scans a bounded window from the forced-start index for the
// first anchor. Only a strict threshold pair is accepted.
func (m *matcher) tryAcquisition(segment *domain.TranscriptSegment, variants []evidenceVariant) bool {
	start := 0
	if m.forcedStart >= 0 {
		start = m.forcedStart
	}
	top, second := m.scanRange(start, start+acquisitionScanAyat, variants)
	if top == nil {
		return false
	}

	confidence := m.confidenceFor(top, second)
	if top.score < m.cfg.MinScore || top.overlap < m.cfg.MinOverlap || confidence < 0.70 {
		return false
	}
	return m.acceptCandidate(segment, top, domain.QualityHigh, confidence)
}

// tryForward evaluates the close forward window around the pointer and
// accepts the lowest-index candidate that clears the high or ambiguous
// thresholds with a plausible jump.
func (m *matcher) tryForward(segment *domain.TranscriptSegment, variants []evidenceVariant) bool {
	type scored struct {
		cand candidateEvidence
		jump int
	}
	var candidates []scored
	best, second := -1.0, -1.0
	for linear := m.pointer - 1; linear <= m.pointer+2; linear++ {
		if linear < 0 || linear >= m.idx.Len() {
			continue
		}
		entry := m.idx.Entry(linear)
		if m.idx.IsExcludedSurah(entry) {
			continue
		}
		cand, ok := evaluateEntry(entry, linear, variants)
		if !ok {
			continue
		}
		if cand.adjusted > best {
			second = best
			best = cand.adjusted
		} else if cand.adjusted > second {
			second = cand.adjusted
		}
		candidates = append(candidates, scored{cand: cand, jump: linear - m.pointer})
	}

	maxJump := m.cfg.MaxForwardJumpAyat
	if m.awaitingReacquire || m.lockCount > 0 {
		maxJump = 1
	}

	for _, c := range candidates {
		if c.jump < 1 || c.jump > maxJump {
			continue
		}
		margin := math.Max(0, c.cand.adjusted-math.Max(0, second))
		confidence := 0.55*(c.cand.score/100) + 0.25*math.Min(1, margin/20) + 0.20*c.cand.overlap

		isHigh := c.cand.score >= m.cfg.MinScore && c.cand.overlap >= m.cfg.MinOverlap && confidence >= m.cfg.MinConfidence
		isAmbiguous := c.cand.score >= m.cfg.AmbiguousMinScore && confidence >= m.cfg.AmbiguousMinConfidence && c.cand.overlap >= 0.6*m.cfg.MinOverlap
		if !isHigh && !isAmbiguous {
			continue
		}
		quality := domain.QualityHigh
		if !isHigh {
			quality = domain.QualityAmbiguous
		}
		if m.awaitingReacquire && !m.passesReacquireGuard(c.cand, confidence, quality) {
			continue
		}
		if m.acceptCandidate(segment, &c.cand, quality, confidence) {
			return true
		}
	}
	return false
}

// tryRecovery scans far forward after a failed close-window match. Stricter
// thresholds, a bounded jump and plausible elapsed wall time are required.
func (m *matcher) tryRecovery(segment *domain.TranscriptSegment, variants []evidenceVariant) bool {
	top, second := m.scanRange(m.pointer+1, m.pointer+1+recoveryScanAyat, variants)
	if top == nil {
		return false
	}

	jump := top.linearIndex - m.pointer
	if jump < 1 || jump > m.cfg.MaxRecoveryJumpAyat {
		return false
	}

	confidence := m.confidenceFor(top, second)
	if top.score < 80 || top.overlap < 0.20 || confidence < 0.72 {
		return false
	}

	if m.lastMarkerTime >= 0 {
		elapsed := segment.Start - float64(m.lastMarkerTime)
		required := math.Max(10, float64(2*jump))
		if elapsed < required {
			return false
		}
	}

	if !m.acceptCandidate(segment, top, domain.QualityHigh, confidence) {
		return false
	}
	m.counts.RecoveryJumps++
	return true
}

func (m *matcher) scanRange(from, to int, variants []evidenceVariant) (*candidateEvidence, float64) {
	var top *candidateEvidence
	best, second := -1.0, -1.0
	if from < 0 {
		from = 0
	}
	if to > m.idx.Len() {
		to = m.idx.Len()
	}
	for linear := from; linear < to; linear++ {
		entry := m.idx.Entry(linear)
		if m.idx.IsExcludedSurah(entry) {
			continue
		}
		cand, ok := evaluateEntry(entry, linear, variants)
		if !ok {
			continue
		}
		if cand.adjusted > best {
			second = best
			best = cand.adjusted
			copied := cand
			top = &copied
		} else if cand.adjusted > second {
			second = cand.adjusted
		}
	}
	return top, second
}

func (m *matcher) confidenceFor(top *candidateEvidence, second float64) float64 {
	margin := math.Max(0, top.adjusted-math.Max(0, second))
	return 0.55*(top.score/100) + 0.25*math.Min(1, margin/20) + 0.20*top.overlap
}

func (m *matcher) passesReacquireGuard(cand candidateEvidence, confidence float64, quality domain.Quality) bool {
	return quality == domain.QualityHigh &&
		cand.score >= m.cfg.MinScore+4 &&
		cand.overlap >= m.cfg.MinOverlap+0.04 &&
		confidence >= m.cfg.MinConfidence+0.12
}

// acceptCandidate applies the forward-validity and surah-transition rules,
// backfills the previous surah's tail on a cross-surah move, resolves the
// onset and emits the marker.
func (m *matcher) acceptCandidate(segment *domain.TranscriptSegment, cand *candidateEvidence, quality domain.Quality, confidence float64) bool {
	entry := m.idx.Entry(cand.linearIndex)
	onset := resolveOnset(m.segments, m.views, *cand, entry)

	markerStart := int(math.Round(onset.start))
	markerEnd := int(math.Round(onset.end))
	if markerEnd < markerStart {
		markerEnd = markerStart
	}
	if float64(markerStart) < m.pauseHoldUntil {
		markerStart = int(math.Ceil(m.pauseHoldUntil))
		if markerEnd < markerStart {
			markerEnd = markerStart
		}
	}

	var tail []domain.Marker
	if len(m.markers) > 0 {
		previous := &m.markers[len(m.markers)-1]
		if markerStart-previous.Time < m.cfg.MinGapSeconds {
			m.staleCount++
			m.counts.StaleSegments++
			return false
		}
		if previous.SurahNumber != entry.SurahNumber {
			if entry.SurahNumber != previous.SurahNumber+1 {
				m.staleCount++
				m.counts.StaleSegments++
				return false
			}
			filled, ok := m.filler.tailFill(previous, markerStart, m.hasMarker)
			if !ok {
				m.staleCount++
				m.counts.StaleSegments++
				return false
			}
			tail = filled
		}
	}

	for i := range tail {
		m.insertMarker(tail[i])
	}

	marker := domain.Marker{
		Time:                markerStart,
		StartTime:           markerStart,
		EndTime:             markerEnd,
		Surah:               entry.Surah,
		SurahNumber:         entry.SurahNumber,
		Ayah:                entry.Ayah,
		Juz:                 JuzFor(entry.SurahNumber, entry.Ayah),
		Quality:             quality,
		Confidence:          round3(confidence),
		MatchedTokenIndices: onset.pairs,
	}
	m.insertMarker(marker)

	m.pointer = cand.linearIndex
	m.lastMarkerTime = markerStart
	m.awaitingReacquire = false
	if m.lockCount > 0 {
		m.lockCount--
	}
	m.staleCount = 0
	return true
}

func (m *matcher) hasMarker(key domain.AyahKey) bool {
	_, ok := m.positions[key]
	return ok
}

// insertMarker appends the marker or, when a duplicate of the same ayah sits
// within the duplicate window, keeps the better of the two by quality rank,
// then confidence, then earlier time.
func (m *matcher) insertMarker(marker domain.Marker) {
	key := marker.Key()
	if pos, ok := m.positions[key]; ok {
		existing := &m.markers[pos]
		if abs(marker.Time-existing.Time) <= m.cfg.DuplicateAyahWindowSeconds {
			if supersedes(&marker, existing) {
				m.markers[pos] = marker
			}
			return
		}
	}
	m.markers = append(m.markers, marker)
	m.positions[key] = len(m.markers) - 1
}

// supersedes reports whether a beats b by quality rank, then confidence,
// then earlier time.
func supersedes(a, b *domain.Marker) bool {
	if a.Quality.Rank() != b.Quality.Rank() {
		return a.Quality.Rank() > b.Quality.Rank()
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Time < b.Time
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

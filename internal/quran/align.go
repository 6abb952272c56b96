package quran

import (
	"fmt"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// AlignInput carries everything a single alignment run needs. The corpus and
// transcript are read, never modified; the engine performs no I/O.
type AlignInput struct {
	Segments  []domain.TranscriptSegment
	Index     *Index
	Config    Config
	Overrides *domain.DayOverrides
	Part      int

	// ForcedStart overrides the acquisition start position. When nil the
	// day overrides' start anchor applies, if declared.
	ForcedStart *domain.AyahKey

	// PresetResetTimes are reset timestamps detected upstream (for example
	// by audio-level Fatiha detection) merged with the matcher's own.
	PresetResetTimes []float64
}

// Meta is the diagnostic block attached to every result.
type Meta struct {
	Counts              Counts                  `json:"counts"`
	Config              Config                  `json:"match_config"`
	ForcedStart         *domain.AyahKey         `json:"forced_start,omitempty"`
	ManualOverride      *FinalOverrideInfo      `json:"manual_override,omitempty"`
	MarkerTimeOverrides []AppliedMarkerOverride `json:"marker_time_overrides,omitempty"`
	OverrideSurahFill   *RangeFillInfo          `json:"override_surah_fill,omitempty"`
	OverrideConflicts   []OverrideConflict      `json:"override_conflicts,omitempty"`
	InvariantViolations []string                `json:"invariant_violations,omitempty"`
}

// AlignResult is the ordered marker list plus run diagnostics.
type AlignResult struct {
	Markers []domain.Marker `json:"markers"`
	Meta    Meta            `json:"meta"`
}

// Align runs the full pipeline: sequential matching, gap recovery, overrides
// and the post-processing chain. It is deterministic: identical inputs yield
// identical marker lists. Empty inputs succeed with an empty list.
func Align(in AlignInput) (AlignResult, error) {
	if in.Index == nil {
		return AlignResult{}, fmt.Errorf("%w: nil corpus index", domain.ErrMalformedInput)
	}

	result := AlignResult{Meta: Meta{Config: in.Config}}
	counts := &result.Meta.Counts
	counts.Segments = len(in.Segments)

	if len(in.Segments) == 0 || in.Index.Len() == 0 {
		result.Markers = []domain.Marker{}
		return result, nil
	}

	views := buildSegmentViews(in.Segments, in.Config.StrictNormalization)
	filler := newGapFiller(in.Config, in.Index, in.Segments, views)

	forcedStart := -1
	if in.ForcedStart != nil {
		forcedStart = in.Index.LinearIndex(*in.ForcedStart)
		if forcedStart < 0 {
			result.Meta.OverrideConflicts = append(result.Meta.OverrideConflicts, OverrideConflict{
				Kind:   "forced_start",
				Detail: fmt.Sprintf("forced start %d:%d not in corpus", in.ForcedStart.SurahNumber, in.ForcedStart.Ayah),
			})
		} else {
			key := *in.ForcedStart
			result.Meta.ForcedStart = &key
		}
	}
	if forcedStart < 0 {
		linear, conflict := resolveForcedStart(in.Index, in.Overrides)
		if conflict != nil {
			result.Meta.OverrideConflicts = append(result.Meta.OverrideConflicts, *conflict)
		}
		forcedStart = linear
		if linear >= 0 {
			entry := in.Index.Entry(linear)
			result.Meta.ForcedStart = &domain.AyahKey{SurahNumber: entry.SurahNumber, Ayah: entry.Ayah}
		}
	}

	reanchors, reanchorConflicts := filterReanchorPoints(in.Index, in.Overrides, in.Part)
	result.Meta.OverrideConflicts = append(result.Meta.OverrideConflicts, reanchorConflicts...)

	m := newMatcher(in.Config, in.Index, in.Segments, views, filler, forcedStart, reanchors, in.PresetResetTimes, counts)
	markers, resets := m.run()

	markers = fillAnchorGaps(filler, markers, resets)
	markers = backfillLeading(filler, markers)

	markers, finalInfo, finalConflicts := applyFinalAyahOverride(in.Index, markers, in.Overrides)
	result.Meta.ManualOverride = finalInfo
	result.Meta.OverrideConflicts = append(result.Meta.OverrideConflicts, finalConflicts...)

	var applied []AppliedMarkerOverride
	var overrideConflicts []OverrideConflict
	markers, applied, overrideConflicts = applyMarkerOverrides(in.Index, markers, in.Overrides, in.Part)
	result.Meta.MarkerTimeOverrides = applied
	result.Meta.OverrideConflicts = append(result.Meta.OverrideConflicts, overrideConflicts...)

	var rangeInfo *RangeFillInfo
	markers, rangeInfo = fillOverrideSurahRange(in.Index, markers, in.Overrides)
	result.Meta.OverrideSurahFill = rangeInfo

	pp := newPostProcessor(in.Config, in.Index, filler, resets)
	markers = pp.run(markers)

	counts.Markers = len(markers)
	for i := range markers {
		if markers[i].Quality == domain.QualityInferred {
			counts.InferredMarkers++
		}
	}
	result.Meta.InvariantViolations = checkInvariants(markers, in.Index)
	result.Markers = markers
	return result, nil
}

// fillAnchorGaps runs the gap filler between consecutive strong same-surah
// anchors emitted by the matcher.
func fillAnchorGaps(filler *gapFiller, markers []domain.Marker, resets []float64) []domain.Marker {
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

	var anchors []*domain.Marker
	for i := range markers {
		if isStrongAnchor(&markers[i]) {
			anchors = append(anchors, &markers[i])
		}
	}

	var additions []domain.Marker
	for i := 1; i < len(anchors); i++ {
		left, right := anchors[i-1], anchors[i]
		if left.SurahNumber != right.SurahNumber || right.Ayah <= left.Ayah+1 {
			continue
		}
		filled := filler.fillBetween(left, right, exists, resets, false, true)
		for _, f := range filled {
			present[f.Key()] = struct{}{}
		}
		additions = append(additions, filled...)
	}
	if len(additions) > 0 {
		markers = append(markers, additions...)
		sortMarkers(markers)
	}
	return markers
}

// backfillLeading synthesizes the opening ayat of the first anchored surah
// when the transcript starts mid-surah.
func backfillLeading(filler *gapFiller, markers []domain.Marker) []domain.Marker {
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

	var first *domain.Marker
	for i := range markers {
		if isStrongAnchor(&markers[i]) {
			first = &markers[i]
			break
		}
	}
	if first == nil {
		return markers
	}

	additions := filler.leadingBackfill(first, exists)
	if len(additions) > 0 {
		markers = append(markers, additions...)
		sortMarkers(markers)
	}
	return markers
}

// checkInvariants cross-checks the output invariants. Violations indicate an
// engine defect; they are reported in meta rather than aborting the run.
func checkInvariants(markers []domain.Marker, idx *Index) []string {
	var violations []string

	seen := make(map[domain.AyahKey]struct{}, len(markers))
	lastAyahBySurah := make(map[int]int)
	for i := range markers {
		m := &markers[i]
		if i > 0 && m.Time < markers[i-1].Time {
			violations = append(violations, fmt.Sprintf("start_time order broken at %d:%d", m.SurahNumber, m.Ayah))
		}
		if m.EndTime < m.StartTime {
			violations = append(violations, fmt.Sprintf("end before start at %d:%d", m.SurahNumber, m.Ayah))
		}
		if _, dup := seen[m.Key()]; dup {
			violations = append(violations, fmt.Sprintf("duplicate marker %d:%d", m.SurahNumber, m.Ayah))
		}
		seen[m.Key()] = struct{}{}
		if last, ok := lastAyahBySurah[m.SurahNumber]; ok && m.Ayah <= last {
			violations = append(violations, fmt.Sprintf("ayah order broken at %d:%d", m.SurahNumber, m.Ayah))
		}
		lastAyahBySurah[m.SurahNumber] = m.Ayah
		if idx.EntryByKey(m.Key()) == nil {
			violations = append(violations, fmt.Sprintf("marker %d:%d not in corpus", m.SurahNumber, m.Ayah))
		}
		if i > 0 {
			prev := &markers[i-1]
			if prev.SurahNumber == m.SurahNumber && m.Ayah == prev.Ayah+1 && m.StartTime < prev.EndTime-1 {
				violations = append(violations, fmt.Sprintf("overlap beyond tolerance at %d:%d", m.SurahNumber, m.Ayah))
			}
		}
	}
	return violations
}

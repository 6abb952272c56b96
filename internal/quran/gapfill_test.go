package quran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func TestGapInterpolationBetweenAnchors(t *testing.T) {
	cfg := DefaultConfig()
	segments := []domain.TranscriptSegment{
		seg(10, 16, baqaraAyahs[1]),
		// Too short to match anything.
		seg(60, 62, "ذلك الكتاب"),
		seg(120, 128, baqaraAyahs[5]),
	}
	result := alignDefaults(t, segments)

	require.NotNil(t, markerFor(result.Markers, 2, 2))
	require.NotNil(t, markerFor(result.Markers, 2, 6))

	previous := markerFor(result.Markers, 2, 2).StartTime
	var inferredStarts []int
	for ayah := 3; ayah <= 5; ayah++ {
		marker := markerFor(result.Markers, 2, ayah)
		require.NotNil(t, marker, "missing filled marker for ayah %d", ayah)
		assert.Contains(t, []domain.Quality{domain.QualityInferred, domain.QualityAmbiguous}, marker.Quality)
		assert.Greater(t, marker.StartTime, 10)
		assert.Less(t, marker.StartTime, 120)
		assert.Greater(t, marker.StartTime, previous)
		previous = marker.StartTime
		inferredStarts = append(inferredStarts, marker.StartTime)
	}

	for i := 1; i < len(inferredStarts); i++ {
		step := float64(inferredStarts[i] - inferredStarts[i-1])
		assert.GreaterOrEqual(t, step, cfg.MinInferStepSeconds)
		assert.LessOrEqual(t, step, cfg.MaxInferStepSeconds)
	}
	assert.Empty(t, result.Meta.InvariantViolations)
}

func TestFillBetweenRejectsOversizedGaps(t *testing.T) {
	idx := testIndex(t)
	cfg := DefaultConfig()
	filler := newGapFiller(cfg, idx, nil, nil)
	none := func(domain.AyahKey) bool { return false }

	left := domain.Marker{Time: 10, StartTime: 10, EndTime: 14, SurahNumber: 2, Ayah: 2, Quality: domain.QualityHigh, Confidence: 0.9}
	right := left
	right.Ayah = 6

	// Wall-time gap above the cap.
	right.Time = 10 + cfg.MaxInferGapSeconds + 100
	right.StartTime = right.Time
	assert.Empty(t, filler.fillBetween(&left, &right, none, nil, false, false))

	// Gap below the minimum spacing.
	right.Time = 12
	right.StartTime = 12
	assert.Empty(t, filler.fillBetween(&left, &right, none, nil, false, false))
}

func TestFillBetweenRespectsWeakSupportGate(t *testing.T) {
	idx := testIndex(t)
	cfg := DefaultConfig()
	// Dense unrelated speech so the gap is not low-data, but nothing matches.
	var segments []domain.TranscriptSegment
	for start := 10.0; start < 120; start += 10 {
		segments = append(segments, seg(start, start+9, "كلام عادي ليس من القران ابدا هنا"))
	}
	views := buildSegmentViews(segments, false)
	filler := newGapFiller(cfg, idx, segments, views)
	none := func(domain.AyahKey) bool { return false }

	left := domain.Marker{Time: 10, StartTime: 10, EndTime: 14, SurahNumber: 2, Ayah: 2, Quality: domain.QualityAmbiguous, Confidence: 0.55}
	right := domain.Marker{Time: 110, StartTime: 110, EndTime: 114, SurahNumber: 2, Ayah: 6, Quality: domain.QualityAmbiguous, Confidence: 0.55}

	// Weak anchors plus the enforced gate: no support, no inference.
	assert.Empty(t, filler.fillBetween(&left, &right, none, nil, true, false))

	// A strong pair bypasses the gate.
	left.Quality = domain.QualityHigh
	left.Confidence = 0.9
	right.Quality = domain.QualityHigh
	right.Confidence = 0.9
	filled := filler.fillBetween(&left, &right, none, nil, false, false)
	assert.Len(t, filled, 3)
}

func TestLeadingBackfill(t *testing.T) {
	idx := testIndex(t)
	cfg := DefaultConfig()
	// Without evidence only the unverified path can backfill.
	cfg.RequireWeakSupportForInferred = false
	filler := newGapFiller(cfg, idx, nil, nil)
	none := func(domain.AyahKey) bool { return false }

	first := domain.Marker{Time: 60, StartTime: 60, EndTime: 66, SurahNumber: 2, Ayah: 3, Quality: domain.QualityHigh, Confidence: 0.9}
	added := filler.leadingBackfill(&first, none)
	require.Len(t, added, 2)
	for _, marker := range added {
		assert.Less(t, marker.StartTime, 60)
		assert.GreaterOrEqual(t, marker.StartTime, 0)
		assert.LessOrEqual(t, marker.StartTime, 60-cfg.MinGapSeconds)
	}

	// Too many missing leading ayat: no backfill.
	late := domain.Marker{Time: 200, StartTime: 200, EndTime: 210, SurahNumber: 2, Ayah: 6, Quality: domain.QualityHigh, Confidence: 0.9}
	assert.Empty(t, filler.leadingBackfill(&late, none))

	// With the weak-support gate on and no evidence, nothing is backfilled.
	gated := newGapFiller(DefaultConfig(), idx, nil, nil)
	assert.Empty(t, gated.leadingBackfill(&first, none))
}

func TestTailFill(t *testing.T) {
	idx := testIndex(t)
	filler := newGapFiller(DefaultConfig(), idx, nil, nil)
	none := func(domain.AyahKey) bool { return false }

	prev := domain.Marker{Time: 30, StartTime: 30, EndTime: 36, SurahNumber: 2, Ayah: 3, Quality: domain.QualityHigh, Confidence: 0.9}

	filled, ok := filler.tailFill(&prev, 100, none)
	require.True(t, ok)
	require.Len(t, filled, 3)
	last := prev.EndTime
	for i, marker := range filled {
		assert.Equal(t, 4+i, marker.Ayah)
		assert.Greater(t, marker.StartTime, last)
		assert.Less(t, marker.StartTime, 100)
		last = marker.StartTime
	}

	// Terminal unreachable inside a tiny span.
	_, ok = filler.tailFill(&prev, 40, none)
	assert.False(t, ok)

	// Nothing missing when the marker already sits on the terminal ayah.
	terminal := domain.Marker{Time: 30, StartTime: 30, EndTime: 36, SurahNumber: 2, Ayah: 6, Quality: domain.QualityHigh, Confidence: 0.9}
	filled, ok = filler.tailFill(&terminal, 100, none)
	require.True(t, ok)
	assert.Empty(t, filled)
}

func TestHasLowDataGap(t *testing.T) {
	idx := testIndex(t)
	segments := []domain.TranscriptSegment{seg(10, 100, baqaraAyahs[3])}
	views := buildSegmentViews(segments, false)
	filler := newGapFiller(DefaultConfig(), idx, segments, views)

	assert.False(t, filler.hasLowDataGap(10, 100))
	// A silent stretch far beyond the segment.
	assert.True(t, filler.hasLowDataGap(100, 400))
}

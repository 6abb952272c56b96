package quran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func newTestPostProcessor(t *testing.T, resets []float64) *postProcessor {
	t.Helper()
	idx := testIndex(t)
	filler := newGapFiller(DefaultConfig(), idx, nil, nil)
	return newPostProcessor(DefaultConfig(), idx, filler, resets)
}

func mk(surah, ayah, start, end int, quality domain.Quality, confidence float64) domain.Marker {
	return domain.Marker{
		Time:        start,
		StartTime:   start,
		EndTime:     end,
		Surah:       "Al-Baqara",
		SurahNumber: surah,
		Ayah:        ayah,
		Quality:     quality,
		Confidence:  confidence,
	}
}

func TestDedupeLocalWindowKeepsBest(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 100, 104, domain.QualityAmbiguous, 0.55),
		mk(2, 3, 140, 144, domain.QualityHigh, 0.9),
	}
	out := pp.dedupeLocalWindow(markers)
	require.Len(t, out, 1)
	assert.Equal(t, domain.QualityHigh, out[0].Quality)

	// Duplicates outside the window both survive this pass.
	markers = []domain.Marker{
		mk(2, 3, 100, 104, domain.QualityAmbiguous, 0.55),
		mk(2, 3, 400, 404, domain.QualityHigh, 0.9),
	}
	out = pp.dedupeLocalWindow(markers)
	assert.Len(t, out, 2)
}

func TestResolveOverlapsDelaysWeakerLater(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 100, 130, domain.QualityHigh, 0.9),
		mk(2, 4, 120, 140, domain.QualityAmbiguous, 0.6),
	}
	out := pp.resolveOverlaps(markers)
	later := markerFor(out, 2, 4)
	require.NotNil(t, later)
	assert.Equal(t, 131, later.StartTime)
}

func TestResolveOverlapsTrimsEarlierWhenLaterIsBetter(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 100, 130, domain.QualityAmbiguous, 0.6),
		mk(2, 4, 120, 140, domain.QualityHigh, 0.9),
	}
	out := pp.resolveOverlaps(markers)
	earlier := markerFor(out, 2, 3)
	later := markerFor(out, 2, 4)
	require.NotNil(t, earlier)
	require.NotNil(t, later)
	assert.Equal(t, 120, later.StartTime)
	assert.LessOrEqual(t, earlier.EndTime, later.StartTime+1)
}

func TestDeferPostResetShiftsWeakMarkers(t *testing.T) {
	pp := newTestPostProcessor(t, []float64{200})
	markers := []domain.Marker{
		mk(2, 3, 210, 210, domain.QualityInferred, 0.56),
		mk(2, 4, 300, 305, domain.QualityHigh, 0.9),
	}
	out := pp.deferPostReset(markers)
	shifted := markerFor(out, 2, 3)
	require.NotNil(t, shifted)
	assert.Equal(t, 234, shifted.StartTime)

	// High markers stay put.
	high := markerFor(out, 2, 4)
	assert.Equal(t, 300, high.StartTime)
}

func TestRedistributeDenseWeakRuns(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 1, 100, 110, domain.QualityHigh, 0.9),
		mk(2, 2, 120, 120, domain.QualityInferred, 0.56),
		mk(2, 3, 121, 121, domain.QualityInferred, 0.56),
		mk(2, 4, 122, 122, domain.QualityInferred, 0.56),
		mk(2, 5, 123, 123, domain.QualityInferred, 0.56),
		mk(2, 6, 200, 210, domain.QualityHigh, 0.9),
	}
	out := pp.redistributeDenseWeakRuns(markers)

	previous := 100
	for ayah := 2; ayah <= 5; ayah++ {
		marker := markerFor(out, 2, ayah)
		require.NotNil(t, marker)
		assert.Greater(t, marker.StartTime, previous)
		assert.Less(t, marker.StartTime, 200)
		previous = marker.StartTime
	}
	// Spread is now much wider than the original 3-second cluster.
	spread := markerFor(out, 2, 5).StartTime - markerFor(out, 2, 2).StartTime
	assert.Greater(t, spread, 30)
}

func TestExtendPointMarkers(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 100, 100, domain.QualityHigh, 0.9),
		mk(2, 4, 130, 140, domain.QualityHigh, 0.9),
	}
	out := pp.extendPointMarkers(markers)
	assert.Equal(t, 129, markerFor(out, 2, 3).EndTime)

	// Without a following marker the extension caps at 90 seconds.
	markers = []domain.Marker{mk(2, 5, 100, 100, domain.QualityHigh, 0.9)}
	out = pp.extendPointMarkers(markers)
	assert.Equal(t, 190, out[0].EndTime)
}

func TestPruneUnrealisticProgression(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 1, 100, 105, domain.QualityHigh, 0.9),
		// Five ayat in six seconds is implausible.
		mk(2, 6, 106, 110, domain.QualityAmbiguous, 0.6),
	}
	out := pp.pruneUnrealisticProgression(markers)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Ayah)

	// Manual markers always survive.
	markers = []domain.Marker{
		mk(2, 1, 100, 105, domain.QualityHigh, 0.9),
		mk(2, 6, 106, 110, domain.QualityManual, 1.0),
	}
	out = pp.pruneUnrealisticProgression(markers)
	assert.Len(t, out, 2)
}

func TestEnforceSequentialAyahOrder(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 100, 110, domain.QualityHigh, 0.9),
		mk(2, 4, 100, 110, domain.QualityHigh, 0.8),
		mk(2, 5, 90, 95, domain.QualityInferred, 0.56),
	}
	out := pp.enforceSequentialAyahOrder(markers)

	a3 := markerFor(out, 2, 3)
	a4 := markerFor(out, 2, 4)
	a5 := markerFor(out, 2, 5)
	assert.Greater(t, a4.StartTime, a3.StartTime)
	assert.Greater(t, a5.StartTime, a4.StartTime)
}

func TestFinalSortDedupesGlobally(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 3, 400, 404, domain.QualityAmbiguous, 0.6),
		mk(2, 3, 100, 104, domain.QualityHigh, 0.9),
		mk(2, 2, 50, 55, domain.QualityHigh, 0.9),
	}
	out := pp.finalSort(markers)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].Ayah)
	assert.Equal(t, 3, out[1].Ayah)
	assert.Equal(t, domain.QualityHigh, out[1].Quality)
}

func TestPostProcessorChainIsStableOnCleanInput(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	markers := []domain.Marker{
		mk(2, 2, 10, 24, domain.QualityHigh, 0.9),
		mk(2, 3, 40, 54, domain.QualityHigh, 0.9),
		mk(2, 4, 70, 84, domain.QualityHigh, 0.9),
	}
	once := pp.run(append([]domain.Marker(nil), markers...))
	twice := pp.run(append([]domain.Marker(nil), once...))
	assert.Equal(t, once, twice)
}

func TestEnforceSurahTransitionOrder(t *testing.T) {
	pp := newTestPostProcessor(t, nil)
	terminal := mk(2, 6, 100, 110, domain.QualityHigh, 0.9)
	early := domain.Marker{
		Time: 95, StartTime: 95, EndTime: 99,
		Surah: "Al-Imran", SurahNumber: 3, Ayah: 1,
		Quality: domain.QualityInferred, Confidence: 0.56,
	}
	out := pp.enforceSurahTransitionOrder([]domain.Marker{terminal, early})

	imran := markerFor(out, 3, 1)
	require.NotNil(t, imran)
	assert.GreaterOrEqual(t, imran.StartTime, 100+DefaultConfig().MinGapSeconds)
}

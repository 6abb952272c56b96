package quran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfScoreIsNearPerfect(t *testing.T) {
	idx := testIndex(t)
	for _, entry := range idx.Entries() {
		composite, overlap := scoreAgainstEntry(entry.Normalized, &entry)
		assert.GreaterOrEqual(t, composite, 99.0, "entry %d:%d", entry.SurahNumber, entry.Ayah)
		assert.Equal(t, 1.0, overlap, "entry %d:%d", entry.SurahNumber, entry.Ayah)
	}
}

func TestPartialRatioFindsSubstring(t *testing.T) {
	assert.Equal(t, 100.0, partialRatio("الحمد لله", "قال الحمد لله رب العالمين"))
	assert.Equal(t, 100.0, partialRatio("abc", "abc"))
	assert.Equal(t, 0.0, partialRatio("", "abc"))
}

func TestTokenSetRatioIgnoresOrderAndRepeats(t *testing.T) {
	a := "الكتاب ذلك ريب"
	b := "ذلك الكتاب ريب ريب"
	assert.Equal(t, 100.0, tokenSetRatio(a, b))
	assert.Less(t, tokenSetRatio("الكتاب", "المفلحون"), 60.0)
}

func TestTokenOverlapExcludesStopwords(t *testing.T) {
	// Stopwords contribute nothing to either side of the overlap.
	overlap := tokenOverlap("من في الكتاب", "الكتاب هدى")
	assert.InDelta(t, 0.5, overlap, 1e-9)
	assert.Equal(t, 0.0, tokenOverlap("من في", "من في"))
}

func TestHasAnchorHit(t *testing.T) {
	idx := testIndex(t)
	entry := idx.EntryByKey(ayahKey(2, 2))
	require.NotNil(t, entry)
	assert.True(t, hasAnchorHit("الكتاب", entry))
	assert.False(t, hasAnchorHit("من في على", entry))
}

func TestAnchorTokensPreferStrongTokens(t *testing.T) {
	tokens := anchorTokensForForm("من الكتاب هدى")
	assert.Equal(t, []string{"الكتاب"}, tokens)

	// Short forms fall back to medium, then all tokens.
	assert.Equal(t, []string{"الم"}, anchorTokensForForm("الم"))
}

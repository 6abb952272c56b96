package quran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func wordsOf(segment domain.TranscriptSegment) []normalizedWord {
	return buildSegmentViews([]domain.TranscriptSegment{segment}, false)[0].words
}

func TestAlignTokensMatchesExactRecitation(t *testing.T) {
	segment := seg(20, 28, baqaraAyahs[2])
	words := wordsOf(segment)
	form := Normalize(baqaraAyahs[2], false)

	res, ok := alignTokens(words, form)
	require.True(t, ok)
	assert.True(t, res.aligned)
	assert.InDelta(t, 20, res.start, 0.01)
	assert.InDelta(t, 28, res.end, 0.01)
	assert.Len(t, res.pairs, len(words))
}

func TestAlignTokensRejectsUnrelatedText(t *testing.T) {
	segment := seg(20, 28, "كلام اخر مختلف تماما عن النص")
	words := wordsOf(segment)

	_, ok := alignTokens(words, Normalize(baqaraAyahs[1], false))
	assert.False(t, ok)
}

func TestEarliestAnchorHitPicksFirstStrongWord(t *testing.T) {
	idx := testIndex(t)
	entry := idx.EntryByKey(ayahKey(2, 2))
	require.NotNil(t, entry)

	segment := seg(40, 48, "ثم قال ذلك الكتاب لا ريب")
	words := wordsOf(segment)

	res, ok := earliestAnchorHit(words, entry)
	require.True(t, ok)
	assert.Less(t, res.start, 48.0)
	assert.GreaterOrEqual(t, res.start, 40.0)
}

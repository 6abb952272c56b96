package quran

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func TestNewIndexBuildsLinearOrder(t *testing.T) {
	idx := testIndex(t)
	require.Equal(t, 10, idx.Len())

	entry := idx.EntryByKey(ayahKey(2, 2))
	require.NotNil(t, entry)
	assert.Equal(t, "Al-Baqara", entry.Surah)
	assert.Equal(t, 3, idx.LinearIndex(ayahKey(2, 2)))
	assert.Equal(t, -1, idx.LinearIndex(ayahKey(9, 1)))

	assert.Equal(t, 6, idx.SurahTotal(2))
	assert.Equal(t, 3, idx.SurahNumberByName("Al-Imran"))
	assert.Equal(t, 0, idx.SurahNumberByName("Nope"))
}

func TestMatchFormsForDisjoinedLetterOpeners(t *testing.T) {
	idx := testIndex(t)

	opener := idx.EntryByKey(ayahKey(2, 1))
	require.NotNil(t, opener)
	require.Len(t, opener.MatchForms, 2)
	assert.Equal(t, "الم", opener.MatchForms[0])
	assert.Equal(t, "الف لام ميم", opener.MatchForms[1])

	// Non-opener ayat keep a single form.
	plain := idx.EntryByKey(ayahKey(2, 2))
	require.NotNil(t, plain)
	assert.Len(t, plain.MatchForms, 1)
}

func TestNewIndexRejectsMalformedCorpus(t *testing.T) {
	_, err := NewIndex(CorpusPayload{Surahs: []CorpusSurah{{Number: 115, Name: "X", Ayahs: []CorpusAyah{{Number: 1, Text: "نص"}}}}}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))

	_, err = NewIndex(CorpusPayload{Surahs: []CorpusSurah{{Number: 4, Name: "X"}}}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))

	_, err = NewIndex(CorpusPayload{Surahs: []CorpusSurah{{Number: 4, Name: "X", Ayahs: []CorpusAyah{{Number: 0, Text: "نص"}}}}}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestEmptyCorpusBuildsEmptyIndex(t *testing.T) {
	idx, err := NewIndex(CorpusPayload{}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestIsExcludedSurah(t *testing.T) {
	idx := testIndex(t)
	assert.True(t, idx.IsExcludedSurah(idx.Entry(0)))

	byName := domain.AyahEntry{SurahNumber: 5, Surah: "Al-Faatiha"}
	assert.True(t, idx.IsExcludedSurah(&byName))

	arabic := domain.AyahEntry{SurahNumber: 5, Surah: "سورة الفاتحة"}
	assert.True(t, idx.IsExcludedSurah(&arabic))

	baqara := idx.EntryByKey(ayahKey(2, 2))
	assert.False(t, idx.IsExcludedSurah(baqara))
}

func TestJuzFor(t *testing.T) {
	assert.Equal(t, 1, JuzFor(1, 1))
	assert.Equal(t, 1, JuzFor(2, 141))
	assert.Equal(t, 2, JuzFor(2, 142))
	assert.Equal(t, 3, JuzFor(2, 253))
	assert.Equal(t, 30, JuzFor(114, 1))
	assert.Equal(t, 29, JuzFor(67, 1))
}

func TestFatihaLikeDetection(t *testing.T) {
	idx := testIndex(t)
	assert.True(t, idx.isFatihaLike(Normalize("الحمد لله رب العالمين", false)))
	assert.False(t, idx.isFatihaLike(Normalize("ذلك الكتاب لا ريب فيه هدى للمتقين", false)))
	assert.False(t, idx.isFatihaLike(""))
}

func TestNonRecitationDetection(t *testing.T) {
	idx := testIndex(t)
	assert.True(t, idx.isNonRecitation(Normalize("الله أكبر", false)))
	assert.True(t, idx.isNonRecitation(Normalize("سمع الله لمن حمده", false)))
	assert.False(t, idx.isNonRecitation(Normalize("ذلك الكتاب لا ريب فيه هدى للمتقين", false)))
}

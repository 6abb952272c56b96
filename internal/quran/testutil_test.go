package quran

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// Ayah texts used across the engine tests. Surah 1 is present so exclusion
// rules are exercised; surah 2 and 3 open with disjoined letters.
var (
	fatihaAyahs = []string{
		"بسم الله الرحمن الرحيم",
		"الحمد لله رب العالمين",
	}
	baqaraAyahs = []string{
		"الم",
		"ذلك الكتاب لا ريب فيه هدى للمتقين",
		"الذين يؤمنون بالغيب ويقيمون الصلاة ومما رزقناهم ينفقون",
		"والذين يؤمنون بما انزل اليك وما انزل من قبلك وبالاخرة هم يوقنون",
		"اولئك على هدى من ربهم واولئك هم المفلحون",
		"ان الذين كفروا سواء عليهم ءانذرتهم ام لم تنذرهم لا يؤمنون",
	}
	imranAyahs = []string{
		"الم",
		"الله لا اله الا هو الحي القيوم",
	}
)

func testPayload() CorpusPayload {
	build := func(texts []string) []CorpusAyah {
		ayahs := make([]CorpusAyah, len(texts))
		for i, text := range texts {
			ayahs[i] = CorpusAyah{Number: i + 1, Text: text}
		}
		return ayahs
	}
	return CorpusPayload{Surahs: []CorpusSurah{
		{Number: 1, Name: "Al-Fatiha", Ayahs: build(fatihaAyahs)},
		{Number: 2, Name: "Al-Baqara", Ayahs: build(baqaraAyahs)},
		{Number: 3, Name: "Al-Imran", Ayahs: build(imranAyahs)},
	}}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(testPayload(), false)
	require.NoError(t, err)
	return idx
}

// seg builds a transcript segment whose words are spread evenly over the span.
func seg(start, end float64, text string) domain.TranscriptSegment {
	fields := strings.Fields(text)
	segment := domain.TranscriptSegment{Start: start, End: end, Text: text}
	if len(fields) == 0 {
		return segment
	}
	step := (end - start) / float64(len(fields))
	for i, field := range fields {
		segment.Words = append(segment.Words, domain.TranscriptWord{
			Start: start + float64(i)*step,
			End:   start + float64(i+1)*step,
			Text:  field,
		})
	}
	return segment
}

func alignDefaults(t *testing.T, segments []domain.TranscriptSegment) AlignResult {
	t.Helper()
	result, err := Align(AlignInput{
		Segments: segments,
		Index:    testIndex(t),
		Config:   DefaultConfig(),
	})
	require.NoError(t, err)
	return result
}

func ayahKey(surah, ayah int) domain.AyahKey {
	return domain.AyahKey{SurahNumber: surah, Ayah: ayah}
}

func markerFor(markers []domain.Marker, surah, ayah int) *domain.Marker {
	for i := range markers {
		if markers[i].SurahNumber == surah && markers[i].Ayah == ayah {
			return &markers[i]
		}
	}
	return nil
}

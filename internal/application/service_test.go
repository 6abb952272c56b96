package application

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
	"github.com/Himikid/andalus-taraweeh/internal/quran"
)

type stubTranslations struct {
	lookup map[domain.AyahKey]string
}

func (s *stubTranslations) Lookup(ctx context.Context) (map[domain.AyahKey]string, error) {
	return s.lookup, nil
}

type stubCache struct {
	stored map[string][]byte
}

func (s *stubCache) GetDayPayload(ctx context.Context, day, part int) ([]byte, error) {
	return nil, nil
}

func (s *stubCache) SetDayPayload(ctx context.Context, day, part int, payload []byte) error {
	if s.stored == nil {
		s.stored = make(map[string][]byte)
	}
	s.stored["payload"] = payload
	return nil
}

type stubNotifier struct {
	summaries []domain.DaySummary
}

func (s *stubNotifier) NotifyDaySummary(ctx context.Context, summary domain.DaySummary) error {
	s.summaries = append(s.summaries, summary)
	return nil
}

func testServiceIndex(t *testing.T) *quran.Index {
	t.Helper()
	idx, err := quran.NewIndex(quran.CorpusPayload{Surahs: []quran.CorpusSurah{
		{Number: 2, Name: "Al-Baqara", Ayahs: []quran.CorpusAyah{
			{Number: 1, Text: "الم"},
			{Number: 2, Text: "ذلك الكتاب لا ريب فيه هدى للمتقين"},
			{Number: 3, Text: "الذين يؤمنون بالغيب ويقيمون الصلاة ومما رزقناهم ينفقون"},
		}},
	}}, false)
	require.NoError(t, err)
	return idx
}

func testSegment(start, end float64, text string) domain.TranscriptSegment {
	return domain.TranscriptSegment{Start: start, End: end, Text: text}
}

func TestProcessDayProducesEnrichedPayload(t *testing.T) {
	translations := &stubTranslations{lookup: map[domain.AyahKey]string{
		{SurahNumber: 2, Ayah: 2}: "This is the Book about which there is no doubt",
	}}
	cache := &stubCache{}
	notifier := &stubNotifier{}

	service := NewService(zerolog.Nop(), translations, cache, notifier)
	payload, err := service.ProcessDay(context.Background(), ProcessDayRequest{
		Day:   3,
		Index: testServiceIndex(t),
		Segments: []domain.TranscriptSegment{
			testSegment(10, 16, "ذلك الكتاب لا ريب فيه هدى للمتقين"),
			testSegment(30, 37, "الذين يؤمنون بالغيب ويقيمون الصلاة ومما رزقناهم ينفقون"),
		},
		Config: quran.DefaultConfig(),
		ReciterWindows: []domain.ReciterWindow{
			{Start: 0, End: 100, Reciter: "Hasan"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, 3, payload.Day)
	require.NotEmpty(t, payload.Markers)

	first := payload.Markers[0]
	assert.Equal(t, "ذلك الكتاب لا ريب فيه هدى للمتقين", first.ArabicText)
	assert.Equal(t, "This is the Book about which there is no doubt", first.EnglishText)
	assert.Equal(t, "Hasan", first.Reciter)

	assert.NotEmpty(t, payload.Meta.RunID)
	assert.NotEmpty(t, payload.Meta.GeneratedAt)
	assert.NotEmpty(t, payload.Meta.StageTimings)

	assert.NotEmpty(t, cache.stored)
	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, len(payload.Markers), notifier.summaries[0].MarkerCount)
}

func TestProcessDayWorksWithoutOptionalPorts(t *testing.T) {
	service := NewService(zerolog.Nop(), nil, nil, nil)
	payload, err := service.ProcessDay(context.Background(), ProcessDayRequest{
		Day:    1,
		Index:  testServiceIndex(t),
		Config: quran.DefaultConfig(),
	})
	require.NoError(t, err)
	assert.Empty(t, payload.Markers)
	assert.Equal(t, 0, payload.Meta.Counts.Markers)
}

func TestMapRecitersFallsBackToUnknown(t *testing.T) {
	markers := []domain.Marker{
		{Time: 10, SurahNumber: 2, Ayah: 2},
		{Time: 500, SurahNumber: 2, Ayah: 3},
	}
	mapReciters(markers, []domain.ReciterWindow{{Start: 0, End: 100, Reciter: "Samir"}})
	assert.Equal(t, "Samir", markers[0].Reciter)
	assert.Equal(t, "Unknown", markers[1].Reciter)
}

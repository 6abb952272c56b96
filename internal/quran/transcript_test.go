package quran

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func TestCleanTranscriptDropsDegenerateSegments(t *testing.T) {
	segments := []domain.TranscriptSegment{
		{Start: 5, End: 4, Text: "قال الحق"},
		{Start: 10, End: 12, Text: "  "},
		{Start: 20, End: 26, Text: baqaraAyahs[1]},
	}
	cleaned := CleanTranscript(segments, false)
	assert.Len(t, cleaned, 2)
	assert.Equal(t, cleaned[0].Start, cleaned[0].End)
}

func TestCleanTranscriptRestoresOrder(t *testing.T) {
	segments := []domain.TranscriptSegment{
		{Start: 50, End: 55, Text: baqaraAyahs[2]},
		{Start: 10, End: 15, Text: baqaraAyahs[1]},
	}
	cleaned := CleanTranscript(segments, false)
	assert.Equal(t, 10.0, cleaned[0].Start)
}

func TestCleanTranscriptTruncatesHallucinatedLoops(t *testing.T) {
	var segments []domain.TranscriptSegment
	for i := 0; i < 6; i++ {
		segments = append(segments, domain.TranscriptSegment{
			Start: float64(10 + i*2),
			End:   float64(12 + i*2),
			Text:  "سبحان الله",
		})
	}
	cleaned := CleanTranscript(segments, false)
	assert.Len(t, cleaned, 2)
}

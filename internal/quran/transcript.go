package quran

import (
	"sort"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// hallucinationRepeatCap caps how many consecutive identical segments survive
// cleaning. Speech models occasionally loop on one phrase during silence.
const hallucinationRepeatCap = 2

// CleanTranscript prepares raw transcript segments for matching: degenerate
// segments are dropped, time spans repaired, order restored, and
// hallucinated repeat loops truncated.
func CleanTranscript(segments []domain.TranscriptSegment, strict bool) []domain.TranscriptSegment {
	cleaned := make([]domain.TranscriptSegment, 0, len(segments))
	for _, segment := range segments {
		if Normalize(segment.Text, strict) == "" {
			continue
		}
		if segment.End < segment.Start {
			segment.End = segment.Start
		}
		cleaned = append(cleaned, segment)
	}

	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Start < cleaned[j].Start })

	out := cleaned[:0:0]
	repeats := 0
	previous := ""
	for _, segment := range cleaned {
		normalized := Normalize(segment.Text, strict)
		if normalized == previous {
			repeats++
			if repeats >= hallucinationRepeatCap {
				continue
			}
		} else {
			repeats = 0
			previous = normalized
		}
		out = append(out, segment)
	}
	return out
}

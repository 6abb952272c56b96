package transcriptcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// Payload is the transcript cache file shape. TimeOffsetSeconds shifts all
// times when the transcript covers a windowed portion of the day's audio.
type Payload struct {
	Day               int                        `json:"day"`
	Source            string                     `json:"source,omitempty"`
	TimeOffsetSeconds float64                    `json:"time_offset_seconds,omitempty"`
	Segments          []domain.TranscriptSegment `json:"segments"`
}

// PathFor builds the conventional cache file name:
// day-{day}[-part-{part}]-transcript-{suffix}.json.
func PathFor(dir string, day, part int, suffix string) string {
	partSuffix := ""
	if part > 0 {
		partSuffix = fmt.Sprintf("-part-%d", part)
	}
	if suffix == "" {
		suffix = "full"
	}
	return filepath.Join(dir, fmt.Sprintf("day-%d%s-transcript-%s.json", day, partSuffix, suffix))
}

// Load reads a cached transcript, applies the time offset and drops empty
// segments and words.
func Load(path string) ([]domain.TranscriptSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript cache: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal transcript cache: %w", err)
	}

	offset := payload.TimeOffsetSeconds
	segments := make([]domain.TranscriptSegment, 0, len(payload.Segments))
	for _, segment := range payload.Segments {
		if strings.TrimSpace(segment.Text) == "" {
			continue
		}
		segment.Start += offset
		segment.End += offset
		if segment.End < segment.Start {
			segment.End = segment.Start
		}
		words := segment.Words[:0:0]
		for _, word := range segment.Words {
			if strings.TrimSpace(word.Text) == "" {
				continue
			}
			word.Start += offset
			word.End += offset
			words = append(words, word)
		}
		segment.Words = words
		segments = append(segments, segment)
	}
	return segments, nil
}

// Save writes a transcript cache file, creating parent directories.
func Save(path string, payload Payload) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript cache: %w", err)
	}
	return nil
}

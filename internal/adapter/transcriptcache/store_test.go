package transcriptcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("cache", "day-3-transcript-full.json"), PathFor("cache", 3, 0, ""))
	assert.Equal(t, filepath.Join("cache", "day-3-part-2-transcript-full.json"), PathFor("cache", 3, 2, "full"))
	assert.Equal(t, filepath.Join("cache", "day-7-transcript-900s.json"), PathFor("cache", 7, 0, "900s"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day-1-transcript-full.json")
	payload := Payload{
		Day: 1,
		Segments: []domain.TranscriptSegment{
			{
				Start: 10, End: 16, Text: "ذلك الكتاب",
				Words: []domain.TranscriptWord{
					{Start: 10, End: 13, Text: "ذلك"},
					{Start: 13, End: 16, Text: "الكتاب"},
					{Start: 16, End: 16, Text: "  "},
				},
			},
			{Start: 20, End: 22, Text: "   "},
		},
	}
	require.NoError(t, Save(path, payload))

	segments, err := Load(path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Words, 2)
}

func TestLoadAppliesTimeOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day-2-transcript-full.json")
	payload := Payload{
		Day:               2,
		TimeOffsetSeconds: 100,
		Segments: []domain.TranscriptSegment{
			{Start: 10, End: 16, Text: "نص", Words: []domain.TranscriptWord{{Start: 10, End: 16, Text: "نص"}}},
		},
	}
	require.NoError(t, Save(path, payload))

	segments, err := Load(path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 110.0, segments[0].Start)
	assert.Equal(t, 116.0, segments[0].End)
	assert.Equal(t, 110.0, segments[0].Words[0].Start)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

package domain

// Quality grades an emitted ayah marker.
type Quality string

const (
	QualityHigh      Quality = "high"
	QualityAmbiguous Quality = "ambiguous"
	QualityInferred  Quality = "inferred"
	QualityManual    Quality = "manual"
)

// Rank projects the quality onto its total order: manual > high > ambiguous > inferred.
func (q Quality) Rank() int {
	switch q {
	case QualityManual:
		return 4
	case QualityHigh:
		return 3
	case QualityAmbiguous:
		return 2
	case QualityInferred:
		return 1
	}
	return 0
}

// AyahEntry is one canonical ayah of the corpus. Immutable after load.
type AyahEntry struct {
	SurahNumber int
	Surah       string
	Ayah        int
	Text        string
	Normalized  string
	MatchForms  []string
}

// AyahKey identifies an ayah by (surah number, ayah number).
type AyahKey struct {
	SurahNumber int
	Ayah        int
}

// TranscriptWord is one recognized word with its time span.
type TranscriptWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptSegment is one recognized utterance with word-level timings.
type TranscriptSegment struct {
	Start float64          `json:"start"`
	End   float64          `json:"end"`
	Text  string           `json:"text"`
	Words []TranscriptWord `json:"words"`
}

// Marker is one emitted ayah marker. Time mirrors StartTime for output
// compatibility with the reel tooling that consumes day JSON files.
type Marker struct {
	Time                int      `json:"time"`
	StartTime           int      `json:"start_time"`
	EndTime             int      `json:"end_time"`
	Surah               string   `json:"surah"`
	SurahNumber         int      `json:"surah_number"`
	Ayah                int      `json:"ayah"`
	Juz                 int      `json:"juz"`
	Quality             Quality  `json:"quality"`
	Confidence          float64  `json:"confidence"`
	Reciter             string   `json:"reciter,omitempty"`
	ArabicText          string   `json:"arabic_text,omitempty"`
	EnglishText         string   `json:"english_text,omitempty"`
	MatchedTokenIndices [][2]int `json:"matched_token_indices,omitempty"`
}

// Key returns the marker's identity key.
func (m *Marker) Key() AyahKey {
	return AyahKey{SurahNumber: m.SurahNumber, Ayah: m.Ayah}
}

// SetStart moves the marker onset keeping the Time mirror in sync and the
// end time valid.
func (m *Marker) SetStart(start int) {
	m.StartTime = start
	m.Time = start
	if m.EndTime < start {
		m.EndTime = start
	}
}

// ReanchorPoint forces the matcher to resume at a corpus position once the
// transcript reaches the given time.
type ReanchorPoint struct {
	Time        int  `json:"time"`
	SurahNumber int  `json:"surah_number"`
	Ayah        int  `json:"ayah"`
	Part        *int `json:"part,omitempty"`
}

// MarkerOverride upserts a manual marker for one ayah.
type MarkerOverride struct {
	SurahNumber int  `json:"surah_number"`
	Ayah        int  `json:"ayah"`
	StartTime   int  `json:"start_time"`
	EndTime     *int `json:"end_time,omitempty"`
	Part        *int `json:"part,omitempty"`
}

// DayOverrides is the per-day declarative override block. All fields are
// optional; a zero value means no overrides.
type DayOverrides struct {
	StartSurahNumber *int             `json:"start_surah_number,omitempty"`
	StartAyah        *int             `json:"start_ayah,omitempty"`
	FinalSurah       string           `json:"final_surah,omitempty"`
	FinalAyah        *int             `json:"final_ayah,omitempty"`
	StartTime        *int             `json:"start_time,omitempty"`
	FinalTime        *int             `json:"final_time,omitempty"`
	ReanchorPoints   []ReanchorPoint  `json:"reanchor_points,omitempty"`
	MarkerOverrides  []MarkerOverride `json:"marker_overrides,omitempty"`
}

// ReciterWindow labels a time window with the reciter active in it. The
// segmentation itself is produced by the external voice-labeling collaborator.
type ReciterWindow struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Reciter string `json:"reciter"`
}

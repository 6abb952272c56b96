package quran

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// CorpusPayload mirrors the corpus JSON file shape.
type CorpusPayload struct {
	Surahs []CorpusSurah `json:"surahs"`
}

type CorpusSurah struct {
	Number int          `json:"number"`
	Name   string       `json:"name"`
	Ayahs  []CorpusAyah `json:"ayahs"`
}

type CorpusAyah struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// muqattaatSpokenForms maps 13 disjoined-letter opener patterns (compact,
// space-removed normalized text) to their spoken-letter recitation variants.
var muqattaatSpokenForms = map[string]string{
	"الم":   "الف لام ميم",
	"المر":  "الف لام ميم را",
	"الر":   "الف لام را",
	"كهيعص": "كاف ها يا عين صاد",
	"طه":    "طا ها",
	"طسم":   "طا سين ميم",
	"طس":    "طا سين",
	"يس":    "يا سين",
	"ص":     "صاد",
	"حم":    "حا ميم",
	"عسق":   "عين سين قاف",
	"ق":     "قاف",
	"ن":     "نون",
}

// Index is the loaded corpus: the linear ayah sequence plus the lookup maps
// and memoized phrase lists the matcher needs. Built once per run; read-only
// afterwards.
type Index struct {
	entries     []domain.AyahEntry
	byKey       map[domain.AyahKey]int
	surahTotals map[int]int
	surahNames  map[int]string
	strict      bool

	fatihaHints   []string
	nonRecitation []string
}

// NewIndex validates the corpus payload and builds the index. Ayah text is
// normalized and match forms are attached; a surah with no ayat or an
// out-of-range number is a hard MalformedInput failure naming the offender.
func NewIndex(payload CorpusPayload, strict bool) (*Index, error) {
	idx := &Index{
		byKey:       make(map[domain.AyahKey]int),
		surahTotals: make(map[int]int),
		surahNames:  make(map[int]string),
		strict:      strict,
	}

	for _, surah := range payload.Surahs {
		if surah.Number < 1 || surah.Number > 114 {
			return nil, fmt.Errorf("%w: surah number %d out of range", domain.ErrMalformedInput, surah.Number)
		}
		if len(surah.Ayahs) == 0 {
			return nil, fmt.Errorf("%w: surah %d has no ayahs", domain.ErrMalformedInput, surah.Number)
		}
		if !utf8.ValidString(surah.Name) {
			return nil, fmt.Errorf("%w: surah %d name is not valid UTF-8", domain.ErrMalformedInput, surah.Number)
		}
		idx.surahNames[surah.Number] = surah.Name

		for _, ayah := range surah.Ayahs {
			if ayah.Number < 1 {
				return nil, fmt.Errorf("%w: surah %d ayah number %d out of range", domain.ErrMalformedInput, surah.Number, ayah.Number)
			}
			if !utf8.ValidString(ayah.Text) {
				return nil, fmt.Errorf("%w: surah %d ayah %d text is not valid UTF-8", domain.ErrMalformedInput, surah.Number, ayah.Number)
			}

			normalized := Normalize(ayah.Text, strict)
			if normalized == "" {
				continue
			}

			entry := domain.AyahEntry{
				SurahNumber: surah.Number,
				Surah:       surah.Name,
				Ayah:        ayah.Number,
				Text:        strings.TrimSpace(ayah.Text),
				Normalized:  normalized,
				MatchForms:  buildMatchForms(ayah.Number, normalized, strict),
			}
			key := domain.AyahKey{SurahNumber: surah.Number, Ayah: ayah.Number}
			idx.byKey[key] = len(idx.entries)
			idx.entries = append(idx.entries, entry)
			if ayah.Number > idx.surahTotals[surah.Number] {
				idx.surahTotals[surah.Number] = ayah.Number
			}
		}
	}

	idx.fatihaHints = normalizePhrases(fatihaHintPhrases, strict)
	idx.nonRecitation = normalizePhrases(nonRecitationPhrases, strict)
	return idx, nil
}

func buildMatchForms(ayahNumber int, normalized string, strict bool) []string {
	forms := []string{normalized}
	if ayahNumber != 1 {
		return forms
	}
	compact := strings.ReplaceAll(normalized, " ", "")
	spoken, ok := muqattaatSpokenForms[compact]
	if !ok {
		return forms
	}
	variant := Normalize(spoken, strict)
	if variant != "" && variant != normalized {
		forms = append(forms, variant)
	}
	return forms
}

func normalizePhrases(phrases []string, strict bool) []string {
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if normalized := Normalize(phrase, strict); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// Len returns the number of linear corpus entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Entry returns the entry at a linear index.
func (idx *Index) Entry(i int) *domain.AyahEntry { return &idx.entries[i] }

// Entries exposes the full linear sequence, read-only by convention.
func (idx *Index) Entries() []domain.AyahEntry { return idx.entries }

// LinearIndex returns the linear position for an ayah key, or -1.
func (idx *Index) LinearIndex(key domain.AyahKey) int {
	if i, ok := idx.byKey[key]; ok {
		return i
	}
	return -1
}

// EntryByKey returns the entry for an ayah key, or nil.
func (idx *Index) EntryByKey(key domain.AyahKey) *domain.AyahEntry {
	if i, ok := idx.byKey[key]; ok {
		return &idx.entries[i]
	}
	return nil
}

// SurahTotal returns the terminal ayah number of a surah, 0 if unknown.
func (idx *Index) SurahTotal(surahNumber int) int { return idx.surahTotals[surahNumber] }

// SurahName returns the display name for a surah number.
func (idx *Index) SurahName(surahNumber int) string { return idx.surahNames[surahNumber] }

// SurahNumberByName resolves a display name back to its number, 0 if unknown.
func (idx *Index) SurahNumberByName(name string) int {
	for number, candidate := range idx.surahNames {
		if candidate == name {
			return number
		}
	}
	return 0
}

// IsExcludedSurah reports whether a surah never produces markers. Al-Fatiha
// is recited between cycles and acts as a reset signal instead.
func (idx *Index) IsExcludedSurah(entry *domain.AyahEntry) bool {
	if entry.SurahNumber == 1 {
		return true
	}
	name := strings.ToLower(entry.Surah)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, " ", "")
	return strings.Contains(name, "fatiha") || strings.Contains(name, "faatiha") || strings.Contains(entry.Surah, "فاتحة")
}

// juzStarts is the fixed 30-row (juz, start surah, start ayah) table.
var juzStarts = [30][3]int{
	{1, 1, 1}, {2, 2, 142}, {3, 2, 253}, {4, 3, 93}, {5, 4, 24},
	{6, 4, 148}, {7, 5, 82}, {8, 6, 111}, {9, 7, 88}, {10, 8, 41},
	{11, 9, 93}, {12, 11, 6}, {13, 12, 53}, {14, 15, 1}, {15, 17, 1},
	{16, 18, 75}, {17, 21, 1}, {18, 23, 1}, {19, 25, 21}, {20, 27, 56},
	{21, 29, 46}, {22, 33, 31}, {23, 36, 28}, {24, 39, 32}, {25, 41, 47},
	{26, 46, 1}, {27, 51, 31}, {28, 58, 1}, {29, 67, 1}, {30, 78, 1},
}

// JuzFor maps an ayah to its juz via a descending scan of the start table.
func JuzFor(surahNumber, ayahNumber int) int {
	for i := len(juzStarts) - 1; i >= 0; i-- {
		juz, startSurah, startAyah := juzStarts[i][0], juzStarts[i][1], juzStarts[i][2]
		if surahNumber > startSurah {
			return juz
		}
		if surahNumber == startSurah && ayahNumber >= startAyah {
			return juz
		}
	}
	return 1
}

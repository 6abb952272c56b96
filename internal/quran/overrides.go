package quran

import (
	"fmt"
	"math"
	"sort"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// OverrideConflict records an override that named something outside the
// corpus. Conflicts are reported in meta and the offending override is
// skipped; a run never aborts because of one.
type OverrideConflict struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// AppliedMarkerOverride documents one marker override upsert.
type AppliedMarkerOverride struct {
	SurahNumber int  `json:"surah_number"`
	Ayah        int  `json:"ayah"`
	StartTime   int  `json:"start_time"`
	EndTime     int  `json:"end_time"`
	Inserted    bool `json:"inserted,omitempty"`
}

// FinalOverrideInfo documents the final-ayah filter outcome.
type FinalOverrideInfo struct {
	FinalSurah           string `json:"final_surah,omitempty"`
	FinalAyah            int    `json:"final_ayah,omitempty"`
	StartTime            *int   `json:"start_time,omitempty"`
	FinalTime            *int   `json:"final_time,omitempty"`
	MarkersBefore        int    `json:"markers_before"`
	MarkersAfter         int    `json:"markers_after"`
	InsertedTerminal     bool   `json:"inserted_terminal"`
	InsertedTerminalTime *int   `json:"inserted_terminal_time,omitempty"`
}

// RangeFillInfo documents the coverage fill within the declared surah range.
type RangeFillInfo struct {
	Surah               string `json:"surah"`
	SurahNumber         int    `json:"surah_number"`
	TargetFinalAyah     int    `json:"target_final_ayah"`
	AddedMarkers        int    `json:"added_markers"`
	FallbackStepSeconds int    `json:"fallback_step_seconds"`
}

// resolveForcedStart maps the declared start ayah to its linear corpus index.
func resolveForcedStart(idx *Index, ov *domain.DayOverrides) (int, *OverrideConflict) {
	if ov == nil || ov.StartSurahNumber == nil || ov.StartAyah == nil {
		return -1, nil
	}
	key := domain.AyahKey{SurahNumber: *ov.StartSurahNumber, Ayah: *ov.StartAyah}
	linear := idx.LinearIndex(key)
	if linear < 0 {
		return -1, &OverrideConflict{
			Kind:   "start_anchor",
			Detail: fmt.Sprintf("start anchor %d:%d not in corpus", key.SurahNumber, key.Ayah),
		}
	}
	return linear, nil
}

// filterReanchorPoints keeps the points that belong to this part and exist in
// the corpus, sorted by time.
func filterReanchorPoints(idx *Index, ov *domain.DayOverrides, part int) ([]domain.ReanchorPoint, []OverrideConflict) {
	if ov == nil {
		return nil, nil
	}
	var points []domain.ReanchorPoint
	var conflicts []OverrideConflict
	for _, point := range ov.ReanchorPoints {
		if point.Part != nil && *point.Part != part {
			continue
		}
		if point.Time < 0 || point.SurahNumber <= 0 || point.Ayah <= 0 {
			continue
		}
		if idx.LinearIndex(domain.AyahKey{SurahNumber: point.SurahNumber, Ayah: point.Ayah}) < 0 {
			conflicts = append(conflicts, OverrideConflict{
				Kind:   "reanchor",
				Detail: fmt.Sprintf("reanchor %d:%d not in corpus", point.SurahNumber, point.Ayah),
			})
			continue
		}
		points = append(points, point)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
	return points, conflicts
}

// applyMarkerOverrides upserts manual markers for every declared override
// that exists in the corpus.
func applyMarkerOverrides(idx *Index, markers []domain.Marker, ov *domain.DayOverrides, part int) ([]domain.Marker, []AppliedMarkerOverride, []OverrideConflict) {
	if ov == nil || len(ov.MarkerOverrides) == 0 {
		return markers, nil, nil
	}

	var applied []AppliedMarkerOverride
	var conflicts []OverrideConflict
	for _, item := range ov.MarkerOverrides {
		if item.Part != nil && *item.Part != part {
			continue
		}
		key := domain.AyahKey{SurahNumber: item.SurahNumber, Ayah: item.Ayah}
		entry := idx.EntryByKey(key)
		if entry == nil {
			conflicts = append(conflicts, OverrideConflict{
				Kind:   "marker_override",
				Detail: fmt.Sprintf("marker override %d:%d not in corpus", key.SurahNumber, key.Ayah),
			})
			continue
		}

		endTime := item.StartTime
		if item.EndTime != nil && *item.EndTime > endTime {
			endTime = *item.EndTime
		}

		found := false
		for i := range markers {
			if markers[i].Key() != key {
				continue
			}
			markers[i].SetStart(item.StartTime)
			markers[i].EndTime = endTime
			markers[i].Quality = domain.QualityManual
			markers[i].Confidence = 1.0
			found = true
			break
		}
		if !found {
			markers = append(markers, domain.Marker{
				Time:        item.StartTime,
				StartTime:   item.StartTime,
				EndTime:     endTime,
				Surah:       entry.Surah,
				SurahNumber: entry.SurahNumber,
				Ayah:        entry.Ayah,
				Juz:         JuzFor(entry.SurahNumber, entry.Ayah),
				Quality:     domain.QualityManual,
				Confidence:  1.0,
			})
		}
		applied = append(applied, AppliedMarkerOverride{
			SurahNumber: key.SurahNumber,
			Ayah:        key.Ayah,
			StartTime:   item.StartTime,
			EndTime:     endTime,
			Inserted:    !found,
		})
	}

	if len(applied) > 0 {
		sortMarkers(markers)
	}
	return markers, applied, conflicts
}

// applyFinalAyahOverride filters markers outside the declared time and ayah
// range and synthesizes the terminal manual marker when requested and absent.
func applyFinalAyahOverride(idx *Index, markers []domain.Marker, ov *domain.DayOverrides) ([]domain.Marker, *FinalOverrideInfo, []OverrideConflict) {
	if ov == nil {
		return markers, nil, nil
	}
	if ov.FinalAyah == nil && ov.StartTime == nil && ov.FinalTime == nil {
		return markers, nil, nil
	}

	finalSurahNumber := 0
	if ov.FinalSurah != "" {
		finalSurahNumber = idx.SurahNumberByName(ov.FinalSurah)
	}

	var conflicts []OverrideConflict
	if ov.FinalSurah != "" && finalSurahNumber == 0 {
		conflicts = append(conflicts, OverrideConflict{
			Kind:   "final_surah",
			Detail: fmt.Sprintf("final surah %q not in corpus", ov.FinalSurah),
		})
	}

	keep := func(m *domain.Marker) bool {
		if ov.StartTime != nil && m.Time < *ov.StartTime {
			return false
		}
		if ov.FinalTime != nil && m.Time > *ov.FinalTime {
			return false
		}
		if ov.FinalAyah == nil {
			return true
		}
		if finalSurahNumber > 0 {
			if m.SurahNumber > finalSurahNumber {
				return false
			}
			if m.SurahNumber < finalSurahNumber {
				return true
			}
		}
		return m.Ayah <= *ov.FinalAyah
	}

	filtered := markers[:0:0]
	for i := range markers {
		if keep(&markers[i]) {
			filtered = append(filtered, markers[i])
		}
	}
	if len(filtered) == 0 {
		return markers, nil, conflicts
	}

	info := &FinalOverrideInfo{
		FinalSurah:    ov.FinalSurah,
		StartTime:     ov.StartTime,
		FinalTime:     ov.FinalTime,
		MarkersBefore: len(markers),
	}
	if ov.FinalAyah != nil {
		info.FinalAyah = *ov.FinalAyah
	}

	if ov.FinalAyah != nil && finalSurahNumber > 0 {
		terminalKey := domain.AyahKey{SurahNumber: finalSurahNumber, Ayah: *ov.FinalAyah}
		if idx.EntryByKey(terminalKey) == nil {
			conflicts = append(conflicts, OverrideConflict{
				Kind:   "final_ayah",
				Detail: fmt.Sprintf("terminal ayah %d:%d not in corpus", terminalKey.SurahNumber, terminalKey.Ayah),
			})
		} else if !hasKey(filtered, terminalKey) {
			terminal := synthesizeTerminal(idx, filtered, ov, finalSurahNumber)
			filtered = append(filtered, terminal)
			sortMarkers(filtered)
			info.InsertedTerminal = true
			t := terminal.Time
			info.InsertedTerminalTime = &t
		}
	}

	info.MarkersAfter = len(filtered)
	return filtered, info, conflicts
}

func hasKey(markers []domain.Marker, key domain.AyahKey) bool {
	for i := range markers {
		if markers[i].Key() == key {
			return true
		}
	}
	return false
}

// synthesizeTerminal places the missing terminal marker using the median
// same-surah pacing step.
func synthesizeTerminal(idx *Index, markers []domain.Marker, ov *domain.DayOverrides, surahNumber int) domain.Marker {
	finalAyah := *ov.FinalAyah

	var sameSurah []domain.Marker
	for i := range markers {
		if markers[i].SurahNumber == surahNumber {
			sameSurah = append(sameSurah, markers[i])
		}
	}
	sort.SliceStable(sameSurah, func(i, j int) bool {
		if sameSurah[i].Ayah != sameSurah[j].Ayah {
			return sameSurah[i].Ayah < sameSurah[j].Ayah
		}
		return sameSurah[i].Time < sameSurah[j].Time
	})

	var anchor *domain.Marker
	for i := range sameSurah {
		if sameSurah[i].Ayah <= finalAyah {
			anchor = &sameSurah[i]
		} else {
			break
		}
	}

	var steps []float64
	for i := 1; i < len(sameSurah); i++ {
		ayahGap := sameSurah[i].Ayah - sameSurah[i-1].Ayah
		timeGap := sameSurah[i].Time - sameSurah[i-1].Time
		if ayahGap <= 0 || timeGap <= 0 {
			continue
		}
		steps = append(steps, float64(timeGap)/float64(ayahGap))
	}
	step := 18.0
	if len(steps) > 0 {
		sort.Float64s(steps)
		step = steps[len(steps)/2]
	}

	var terminalTime int
	switch {
	case ov.FinalTime != nil:
		terminalTime = *ov.FinalTime
	case anchor != nil:
		terminalTime = anchor.Time + int(math.Round(float64(maxInt(0, finalAyah-anchor.Ayah))*step))
	default:
		terminalTime = markers[len(markers)-1].Time
	}
	if last := markers[len(markers)-1].Time; terminalTime < last {
		terminalTime = last
	}

	return domain.Marker{
		Time:        terminalTime,
		StartTime:   terminalTime,
		EndTime:     terminalTime,
		Surah:       idx.SurahName(surahNumber),
		SurahNumber: surahNumber,
		Ayah:        finalAyah,
		Juz:         JuzFor(surahNumber, finalAyah),
		Quality:     domain.QualityManual,
		Confidence:  1.0,
	}
}

// fillOverrideSurahRange backfills every missing ayah in [1, final_ayah] of
// the declared final surah using adjacent-median pacing and interpolation.
func fillOverrideSurahRange(idx *Index, markers []domain.Marker, ov *domain.DayOverrides) ([]domain.Marker, *RangeFillInfo) {
	if ov == nil || ov.FinalSurah == "" || ov.FinalAyah == nil || *ov.FinalAyah <= 0 || len(markers) == 0 {
		return markers, nil
	}
	surahNumber := idx.SurahNumberByName(ov.FinalSurah)
	if surahNumber == 0 {
		return markers, nil
	}
	finalAyah := *ov.FinalAyah

	bestByAyah := make(map[int]*domain.Marker)
	for i := range markers {
		m := &markers[i]
		if m.SurahNumber != surahNumber || m.Ayah > finalAyah {
			continue
		}
		existing, ok := bestByAyah[m.Ayah]
		if !ok || supersedes(m, existing) {
			bestByAyah[m.Ayah] = m
		}
	}
	if len(bestByAyah) == 0 {
		return markers, nil
	}

	known := make([]int, 0, len(bestByAyah))
	for ayah := range bestByAyah {
		known = append(known, ayah)
	}
	sort.Ints(known)

	var adjacentSteps []int
	for i := 1; i < len(known); i++ {
		if known[i] != known[i-1]+1 {
			continue
		}
		gap := bestByAyah[known[i]].Time - bestByAyah[known[i-1]].Time
		if gap > 0 && gap < 240 {
			adjacentSteps = append(adjacentSteps, gap)
		}
	}
	fallbackStep := 20
	if len(adjacentSteps) > 0 {
		sort.Ints(adjacentSteps)
		fallbackStep = maxInt(6, adjacentSteps[len(adjacentSteps)/2])
	}

	placed := make(map[int]int)
	for ayah, m := range bestByAyah {
		placed[ayah] = m.Time
	}

	var additions []domain.Marker
	for ayah := 1; ayah <= finalAyah; ayah++ {
		if _, ok := placed[ayah]; ok {
			continue
		}
		entry := idx.EntryByKey(domain.AyahKey{SurahNumber: surahNumber, Ayah: ayah})
		if entry == nil {
			continue
		}

		prevAyah, nextAyah := 0, 0
		for a := ayah - 1; a >= 1; a-- {
			if _, ok := placed[a]; ok {
				prevAyah = a
				break
			}
		}
		for a := ayah + 1; a <= finalAyah; a++ {
			if _, ok := placed[a]; ok {
				nextAyah = a
				break
			}
		}

		var inferredTime int
		switch {
		case prevAyah > 0 && nextAyah > 0 && placed[nextAyah] > placed[prevAyah]:
			ratio := float64(ayah-prevAyah) / float64(maxInt(1, nextAyah-prevAyah))
			inferredTime = placed[prevAyah] + int(math.Round(float64(placed[nextAyah]-placed[prevAyah])*ratio))
			inferredTime = maxInt(inferredTime, placed[prevAyah]+1)
			inferredTime = minInt(inferredTime, placed[nextAyah]-1)
		case prevAyah > 0:
			inferredTime = placed[prevAyah] + (ayah-prevAyah)*fallbackStep
		case nextAyah > 0:
			inferredTime = maxInt(0, placed[nextAyah]-(nextAyah-ayah)*fallbackStep)
		default:
			continue
		}
		if ov.FinalTime != nil {
			inferredTime = minInt(inferredTime, *ov.FinalTime)
		}

		additions = append(additions, domain.Marker{
			Time:        inferredTime,
			StartTime:   inferredTime,
			EndTime:     inferredTime,
			Surah:       entry.Surah,
			SurahNumber: surahNumber,
			Ayah:        ayah,
			Juz:         JuzFor(surahNumber, ayah),
			Quality:     domain.QualityInferred,
			Confidence:  0.56,
		})
		placed[ayah] = inferredTime
	}

	info := &RangeFillInfo{
		Surah:               ov.FinalSurah,
		SurahNumber:         surahNumber,
		TargetFinalAyah:     finalAyah,
		AddedMarkers:        len(additions),
		FallbackStepSeconds: fallbackStep,
	}
	if len(additions) == 0 {
		return markers, info
	}
	merged := append(markers, additions...)
	sortMarkers(merged)
	return merged, info
}

// sortMarkers orders the list by (start time, surah number, ayah).
func sortMarkers(markers []domain.Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].Time != markers[j].Time {
			return markers[i].Time < markers[j].Time
		}
		if markers[i].SurahNumber != markers[j].SurahNumber {
			return markers[i].SurahNumber < markers[j].SurahNumber
		}
		return markers[i].Ayah < markers[j].Ayah
	})
}

package quran

import (
	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

type evidenceSource string

const (
	sourceSegment evidenceSource = "segment"
	sourceMerged  evidenceSource = "merged"
	sourceWindow  evidenceSource = "window"
)

const (
	mergeMaxOffset        = 6
	mergeMaxGapSeconds    = 2.5
	mergeOffsetPenalty    = 1.1
	windowMinWords        = 4
	windowMaxWords        = 8
	windowSizePenalty     = 0.35
	minMeaningfulVariant  = 14
	minMergeFragmentRunes = 2
)

// segmentView caches per-segment normalization so the matcher, gap filler and
// post-processors never re-normalize the same text.
type segmentView struct {
	normalized string
	words      []normalizedWord
}

type normalizedWord struct {
	text  string
	start float64
	end   float64
}

func buildSegmentViews(segments []domain.TranscriptSegment, strict bool) []segmentView {
	views := make([]segmentView, len(segments))
	for i, segment := range segments {
		view := segmentView{normalized: Normalize(segment.Text, strict)}
		for _, word := range segment.Words {
			normalized := Normalize(word.Text, strict)
			if normalized == "" {
				continue
			}
			view.words = append(view.words, normalizedWord{text: normalized, start: word.Start, end: word.End})
		}
		views[i] = view
	}
	return views
}

// evidenceVariant is one textual rendering of the transcript around a
// position: the segment itself, a rightward merge, or a word window.
type evidenceVariant struct {
	source    evidenceSource
	text      string
	penalty   float64
	start     float64
	end       float64
	segFirst  int
	segLast   int
	wordFirst int
	wordLast  int
}

// buildVariants yields the evidence variants for transcript position i:
// the single segment, up to six rightward merges bounded by the inter-segment
// gap, and every 4..8-word sliding window inside the segment.
func buildVariants(segments []domain.TranscriptSegment, views []segmentView, i int) []evidenceVariant {
	base := views[i]
	variants := []evidenceVariant{{
		source:    sourceSegment,
		text:      base.normalized,
		start:     segments[i].Start,
		end:       segments[i].End,
		segFirst:  i,
		segLast:   i,
		wordFirst: -1,
		wordLast:  -1,
	}}

	combined := base.normalized
	previousEnd := segments[i].End
	for offset := 1; offset <= mergeMaxOffset; offset++ {
		next := i + offset
		if next >= len(segments) {
			break
		}
		if segments[next].Start-previousEnd > mergeMaxGapSeconds {
			break
		}
		nextNormalized := views[next].normalized
		if len([]rune(nextNormalized)) < minMergeFragmentRunes {
			break
		}
		combined = combined + " " + nextNormalized
		variants = append(variants, evidenceVariant{
			source:    sourceMerged,
			text:      combined,
			penalty:   float64(offset) * mergeOffsetPenalty,
			start:     segments[i].Start,
			end:       segments[next].End,
			segFirst:  i,
			segLast:   next,
			wordFirst: -1,
			wordLast:  -1,
		})
		previousEnd = segments[next].End
	}

	words := base.words
	for size := windowMinWords; size <= windowMaxWords; size++ {
		if size > len(words) {
			break
		}
		for first := 0; first+size <= len(words); first++ {
			last := first + size - 1
			text := words[first].text
			for w := first + 1; w <= last; w++ {
				text += " " + words[w].text
			}
			variants = append(variants, evidenceVariant{
				source:    sourceWindow,
				text:      text,
				penalty:   float64(windowMaxWords-size) * windowSizePenalty,
				start:     words[first].start,
				end:       words[last].end,
				segFirst:  i,
				segLast:   i,
				wordFirst: first,
				wordLast:  last,
			})
		}
	}

	return variants
}

func maxVariantLength(variants []evidenceVariant) int {
	longest := 0
	for _, v := range variants {
		if n := len([]rune(v.text)); n > longest {
			longest = n
		}
	}
	return longest
}

// candidateEvidence is the outcome of scoring one corpus entry against the
// evidence variants of a transcript position. Constructed and consumed in
// place; never shared across evaluations.
type candidateEvidence struct {
	linearIndex int
	source      evidenceSource
	adjusted    float64
	score       float64
	overlap     float64
	formIndex   int
	text        string
	start       float64
	end         float64
	segFirst    int
	segLast     int
	wordFirst   int
	wordLast    int
}

// evaluateEntry scores every variant against the entry and keeps the variant
// with the best penalty-adjusted score. An anchor-token hit adds a small
// bonus on top.
func evaluateEntry(entry *domain.AyahEntry, linearIndex int, variants []evidenceVariant) (candidateEvidence, bool) {
	best := candidateEvidence{linearIndex: linearIndex, adjusted: -1}
	for _, variant := range variants {
		composite, overlap, formIndex := scoreEntryDetailed(variant.text, entry)
		adjusted := composite - variant.penalty
		if adjusted <= best.adjusted {
			continue
		}
		best = candidateEvidence{
			linearIndex: linearIndex,
			source:      variant.source,
			adjusted:    adjusted,
			score:       composite,
			overlap:     overlap,
			formIndex:   formIndex,
			text:        variant.text,
			start:       variant.start,
			end:         variant.end,
			segFirst:    variant.segFirst,
			segLast:     variant.segLast,
			wordFirst:   variant.wordFirst,
			wordLast:    variant.wordLast,
		}
	}
	if best.adjusted < 0 {
		return best, false
	}
	if hasAnchorHit(best.text, entry) {
		best.adjusted += anchorHitBonus
	}
	return best, true
}

func scoreEntryDetailed(query string, entry *domain.AyahEntry) (composite, overlap float64, formIndex int) {
	composite = -1
	for i, form := range entry.MatchForms {
		score := 0.75*tokenSetRatio(query, form) + 0.25*partialRatio(query, form)
		if score > composite {
			composite = score
			overlap = tokenOverlap(query, form)
			formIndex = i
		}
	}
	return composite, overlap, formIndex
}

package quran

import (
	"math"
	"strings"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

const (
	alignGapPenalty     = -0.45
	alignMismatchScore  = -0.55
	alignMatchThreshold = 0.62
	alignMinAvgSim      = 0.6
	alignMinCoverage    = 0.2
	onsetAnchorMinScore = 80
)

// onsetResult carries the refined marker time span and, when the token
// alignment succeeded, the matched (transcript token, canonical token) pairs.
type onsetResult struct {
	start   float64
	end     float64
	pairs   [][2]int
	aligned bool
}

// resolveOnset refines a marker's time range from the accepted evidence.
// Primary path is a gap-penalized global alignment of transcript words
// against the canonical tokens of the winning match form; fallback is the
// earliest strong anchor-word hit; final fallback is the segment start.
func resolveOnset(segments []domain.TranscriptSegment, views []segmentView, cand candidateEvidence, entry *domain.AyahEntry) onsetResult {
	words := collectEvidenceWords(views, cand)
	form := entry.MatchForms[cand.formIndex]

	if res, ok := alignTokens(words, form); ok {
		return res
	}
	if res, ok := earliestAnchorHit(words, entry); ok {
		return res
	}
	return onsetResult{start: segments[cand.segFirst].Start, end: segments[cand.segLast].End}
}

func collectEvidenceWords(views []segmentView, cand candidateEvidence) []normalizedWord {
	if cand.wordFirst >= 0 {
		view := views[cand.segFirst]
		return view.words[cand.wordFirst : cand.wordLast+1]
	}
	var words []normalizedWord
	for s := cand.segFirst; s <= cand.segLast; s++ {
		words = append(words, views[s].words...)
	}
	return words
}

// alignTokens runs a Needleman-Wunsch-style global alignment between the
// transcript words and the canonical tokens. Accepted only when the matched
// pairs are similar enough on average and cover enough of the shorter side.
func alignTokens(words []normalizedWord, form string) (onsetResult, bool) {
	tokens := strings.Fields(form)
	if len(words) == 0 || len(tokens) == 0 {
		return onsetResult{}, false
	}

	n, m := len(words), len(tokens)
	score := make([][]float64, n+1)
	for i := range score {
		score[i] = make([]float64, m+1)
	}
	for i := 1; i <= n; i++ {
		score[i][0] = float64(i) * alignGapPenalty
	}
	for j := 1; j <= m; j++ {
		score[0][j] = float64(j) * alignGapPenalty
	}

	sim := make([][]float64, n)
	for i := 0; i < n; i++ {
		sim[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			sim[i][j] = partialRatio(words[i].text, tokens[j]) / 100
		}
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			pair := alignMismatchScore
			if sim[i-1][j-1] >= alignMatchThreshold {
				pair = sim[i-1][j-1]
			}
			best := score[i-1][j-1] + pair
			if up := score[i-1][j] + alignGapPenalty; up > best {
				best = up
			}
			if left := score[i][j-1] + alignGapPenalty; left > best {
				best = left
			}
			score[i][j] = best
		}
	}

	// Traceback collecting pairs that cleared the match threshold.
	var pairs [][2]int
	simSum := 0.0
	i, j := n, m
	for i > 0 && j > 0 {
		pair := alignMismatchScore
		if sim[i-1][j-1] >= alignMatchThreshold {
			pair = sim[i-1][j-1]
		}
		switch {
		case math.Abs(score[i][j]-(score[i-1][j-1]+pair)) < 1e-9:
			if sim[i-1][j-1] >= alignMatchThreshold {
				pairs = append(pairs, [2]int{i - 1, j - 1})
				simSum += sim[i-1][j-1]
			}
			i--
			j--
		case math.Abs(score[i][j]-(score[i-1][j]+alignGapPenalty)) < 1e-9:
			i--
		default:
			j--
		}
	}

	if len(pairs) == 0 {
		return onsetResult{}, false
	}
	avg := simSum / float64(len(pairs))
	shorter := n
	if m < shorter {
		shorter = m
	}
	coverage := float64(len(pairs)) / float64(shorter)
	if avg < alignMinAvgSim || coverage < alignMinCoverage {
		return onsetResult{}, false
	}

	// Pairs came out of the traceback in reverse order.
	for left, right := 0, len(pairs)-1; left < right; left, right = left+1, right-1 {
		pairs[left], pairs[right] = pairs[right], pairs[left]
	}

	start := words[pairs[0][0]].start
	end := words[pairs[len(pairs)-1][0]].end
	for _, p := range pairs {
		if words[p[0]].start < start {
			start = words[p[0]].start
		}
		if words[p[0]].end > end {
			end = words[p[0]].end
		}
	}
	return onsetResult{start: start, end: end, pairs: pairs, aligned: true}, true
}

// earliestAnchorHit picks the earliest word that closely matches any anchor
// token of the entry's match forms.
func earliestAnchorHit(words []normalizedWord, entry *domain.AyahEntry) (onsetResult, bool) {
	bestStart := math.Inf(1)
	bestEnd := 0.0
	for _, form := range entry.MatchForms {
		anchors := anchorTokensForForm(form)
		if len(anchors) == 0 {
			continue
		}
		for _, word := range words {
			for _, anchor := range anchors {
				score := similarityRatio(word.text, anchor)
				if p := partialRatio(word.text, anchor); p > score {
					score = p
				}
				if score >= onsetAnchorMinScore {
					if word.start < bestStart {
						bestStart = word.start
					}
					if word.end > bestEnd {
						bestEnd = word.end
					}
					break
				}
			}
		}
	}
	if math.IsInf(bestStart, 1) {
		return onsetResult{}, false
	}
	return onsetResult{start: bestStart, end: bestEnd}, true
}

package quran

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// anchorStopwords are short Arabic function words excluded from content-token
// overlap and anchor-hit checks.
var anchorStopwords = map[string]struct{}{
	"و": {}, "ف": {}, "ثم": {}, "لا": {}, "ما": {}, "من": {},
	"في": {}, "على": {}, "الى": {}, "إلى": {}, "ب": {}, "الذي": {},
	"الذين": {}, "هذا": {}, "ذلك": {}, "عن": {}, "او": {}, "ان": {},
}

// similarityRatio is the plain normalized edit-distance ratio in [0, 100].
func similarityRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	dist := matchr.Levenshtein(a, b)
	if dist >= longest {
		return 0
	}
	return 100 * (1 - float64(dist)/float64(longest))
}

// partialRatio is the best similarityRatio between the shorter string and any
// equal-length rune window of the longer one.
func partialRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == len(longer) {
		return similarityRatio(string(shorter), string(longer))
	}

	short := string(shorter)
	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := string(longer[start : start+len(shorter)])
		if score := similarityRatio(short, window); score > best {
			best = score
			if best >= 100 {
				break
			}
		}
	}
	return best
}

// tokenSetRatio compares the sorted unique-token decompositions of both
// strings, which makes it robust against word order and repetition.
func tokenSetRatio(a, b string) float64 {
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		if len(tokensA) == len(tokensB) {
			return 100
		}
		return 0
	}

	var shared, onlyA, onlyB []string
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}
	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
		if _, ok := setB[t]; ok {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tokensB {
		if _, ok := setA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := similarityRatio(base, combinedA)
	if score := similarityRatio(base, combinedB); score > best {
		best = score
	}
	if score := similarityRatio(combinedA, combinedB); score > best {
		best = score
	}
	return best
}

func uniqueSortedTokens(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func contentTokens(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := anchorStopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// tokenOverlap is the fraction of the reference's content tokens present in
// the query.
func tokenOverlap(query, reference string) float64 {
	queryTokens := contentTokens(query)
	refTokens := contentTokens(reference)
	if len(queryTokens) == 0 || len(refTokens) == 0 {
		return 0
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}
	refSet := make(map[string]struct{}, len(refTokens))
	shared := 0
	for _, t := range refTokens {
		if _, ok := refSet[t]; ok {
			continue
		}
		refSet[t] = struct{}{}
		if _, ok := querySet[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(refSet))
}

// scoreAgainstEntry computes the composite score and content-token overlap of
// a normalized query against an ayah's match forms: per form the composite is
// 0.75·token-set + 0.25·partial, and the best form wins.
func scoreAgainstEntry(query string, entry *domain.AyahEntry) (composite, overlap float64) {
	composite = -1
	for _, form := range entry.MatchForms {
		score := 0.75*tokenSetRatio(query, form) + 0.25*partialRatio(query, form)
		if score > composite {
			composite = score
			overlap = tokenOverlap(query, form)
		}
	}
	return composite, overlap
}

// anchorHitBonus is added to a candidate's adjusted score when the query
// shares a strong content token with the ayah.
const anchorHitBonus = 2.0

// hasAnchorHit reports whether some content token of the query closely
// matches a content token of any match form. Very short anchors need a
// stricter similarity to count.
func hasAnchorHit(query string, entry *domain.AyahEntry) bool {
	queryTokens := contentTokens(query)
	if len(queryTokens) == 0 {
		return false
	}
	for _, form := range entry.MatchForms {
		for _, anchor := range contentTokens(form) {
			threshold := 85.0
			if len([]rune(anchor)) < 4 {
				threshold = 89.0
			}
			for _, token := range queryTokens {
				if similarityRatio(token, anchor) >= threshold {
					return true
				}
			}
		}
	}
	return false
}

// anchorTokensForForm picks the tokens worth aligning word onsets against:
// long non-stopword tokens first, then medium tokens, then everything.
func anchorTokensForForm(form string) []string {
	tokens := strings.Fields(form)
	if len(tokens) == 0 {
		return nil
	}

	var strong []string
	for _, token := range tokens {
		if len([]rune(token)) < 4 {
			continue
		}
		if _, stop := anchorStopwords[token]; stop {
			continue
		}
		strong = append(strong, token)
	}
	if len(strong) > 0 {
		return strong
	}

	var medium []string
	for _, token := range tokens {
		if len([]rune(token)) >= 3 {
			medium = append(medium, token)
		}
	}
	if len(medium) > 0 {
		return medium
	}
	return tokens
}

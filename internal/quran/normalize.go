package quran

import "strings"

// letterFoldTable maps hamza carriers, alef variants, alef maqsura and ta
// marbuta onto their canonical letters for fuzzy comparison.
var letterFoldTable = map[rune]rune{
	'آ': 'ا', // آ -> ا
	'أ': 'ا', // أ -> ا
	'إ': 'ا', // إ -> ا
	'ٱ': 'ا', // ٱ -> ا
	'ؤ': 'و', // ؤ -> و
	'ئ': 'ي', // ئ -> ي
	'ى': 'ي', // ى -> ي
	'ة': 'ه', // ة -> ه
}

func isArabicDiacritic(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670:
		return true
	case r >= 0x06D6 && r <= 0x06ED:
		return true
	}
	return false
}

func isArabicLetter(r rune) bool {
	if r >= 0x0621 && r <= 0x063A {
		return true
	}
	if r >= 0x0641 && r <= 0x064A {
		return true
	}
	return false
}

// Normalize canonicalizes Arabic text for fuzzy comparison: diacritics are
// stripped, hamza/alef variants folded, everything that is not an Arabic
// letter becomes a token break, and consecutive identical tokens collapse to
// one occurrence. Strict mode keeps letter identity: no folding, no
// consecutive-token collapse. Normalize is total and idempotent.
func Normalize(text string, strict bool) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isArabicDiacritic(r) {
			continue
		}
		if !strict {
			if folded, ok := letterFoldTable[r]; ok {
				r = folded
			}
		}
		if isArabicLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return ""
	}
	if strict {
		return strings.Join(tokens, " ")
	}

	collapsed := tokens[:1]
	for _, token := range tokens[1:] {
		if token == collapsed[len(collapsed)-1] {
			continue
		}
		collapsed = append(collapsed, token)
	}
	return strings.Join(collapsed, " ")
}

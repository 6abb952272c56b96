package quran

// fatihaHintPhrases are key phrases of Al-Fatiha. A segment resembling them
// means the reciter restarted a cycle; the matcher must not advance through
// such segments.
var fatihaHintPhrases = []string{
	"الحمد لله رب العالمين",
	"الرحمن الرحيم",
	"مالك يوم الدين",
	"اياك نعبد واياك نستعين",
	"اهدنا الصراط المستقيم",
	"صراط الذين انعمت عليهم غير المغضوب عليهم ولا الضالين",
}

// nonRecitationPhrases mark prayer transitions (takbir, tasbih, taslim).
// They pause progression and hold off marker placement for a while.
var nonRecitationPhrases = []string{
	"الله أكبر",
	"سبحان ربي العظيم",
	"سبحان ربي الأعلى",
	"سمع الله لمن حمده",
	"ربنا ولك الحمد",
	"السلام عليكم ورحمة الله",
}

const (
	fatihaMinScore     = 90
	fatihaMinLength    = 10
	fatihaMaxLength    = 80
	nonRecitationScore = 90
)

// isFatihaLike reports whether a normalized segment reads like a Fatiha
// phrase: one strong hit on a long hint, or two medium hits.
func (idx *Index) isFatihaLike(normalized string) bool {
	length := len([]rune(normalized))
	if length < fatihaMinLength || length > fatihaMaxLength {
		return false
	}

	mediumHits := 0
	for _, phrase := range idx.fatihaHints {
		score := partialRatio(normalized, phrase)
		if len([]rune(phrase)) >= 18 && score >= fatihaMinScore-2 {
			return true
		}
		if score >= fatihaMinScore-6 {
			mediumHits++
			if mediumHits >= 2 {
				return true
			}
		}
	}
	return false
}

// isNonRecitation reports whether a normalized segment is a prayer-transition
// phrase rather than recitation.
func (idx *Index) isNonRecitation(normalized string) bool {
	if normalized == "" {
		return false
	}
	length := len([]rune(normalized))
	for _, phrase := range idx.nonRecitation {
		if length > len([]rune(phrase))+8 {
			continue
		}
		if tokenSetRatio(normalized, phrase) >= nonRecitationScore {
			return true
		}
	}
	return false
}

package normalize

import "unicode"

// DetectLanguage classifies text as "zh" or "en" by Han-script density. The
// corpus is strictly bilingual, so a two-way heuristic beats a general
// detector here; the result is a data-quality signal, never a gate.
func DetectLanguage(text string) string {
	if text == "" {
		return ""
	}
	var han, letters int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
			letters++
		} else if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters == 0 {
		return ""
	}
	if float64(han)/float64(letters) >= 0.2 {
		return "zh"
	}
	return "en"
}

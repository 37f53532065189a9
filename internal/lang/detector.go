// Package lang decides which of the three supported language codes a
// comment is written in. Darija is checked first with lexical markers and
// mixed-script patterns, then a statistical trigram identifier handles the
// French/Arabic split, with a character-script heuristic as last resort.
package lang

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"github.com/obennaji/retour/internal/model"
)

// darijaMarkers are tokens and particles typical of Moroccan Darija,
// matched as substrings of the lower-cased text.
var darijaMarkers = []string{
	"daba", "bezzaf", "mezyan", "mzyan", "dyal", "kayn", "makaynch",
	"wakha", "ach", "chno", "kifach", "fach", "wach", "smiya",
	"kheddam", "khdam", "bach", "hna", "nta", "ntina",
	"ghir", "bghit", "bgha", "machi", "yallah", "safi",
	"had chi", "dial", "rah", "ghi", "bhal", "w-", "u",
}

// darijaPatterns catch mixed Arabic/Latin constructs: question words,
// possessive particles, existential particles.
var darijaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(ach|chno|kifach|fach|wach)\b`),
	regexp.MustCompile(`\b(daba|bezzaf|mezyan|mzyan)\b`),
	regexp.MustCompile(`\b(dyal|dial)\s+\w+`),
	regexp.MustCompile(`\b(kayn|makaynch)\b`),
	regexp.MustCompile(`\b(ghir|ghi)\s+\w+`),
	regexp.MustCompile(`\w+\s+(dyal|dial)\s+\w+`),
}

// Detector classifies comment language. It holds no state and is safe for
// concurrent use.
type Detector struct{}

// NewDetector creates a new language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the language code for text. Empty or whitespace-only text
// defaults to French. No input is ever fatal: when the statistical
// identifier has nothing to work with, detection degrades to a script
// heuristic.
func (d *Detector) Detect(text string) model.Language {
	if strings.TrimSpace(text) == "" {
		return model.LangFrench
	}

	lower := strings.ToLower(text)

	if isDarija(lower) {
		return model.LangDarija
	}

	info := whatlanggo.Detect(text)
	if info.Lang == -1 || info.Confidence == 0 {
		return detectByScript(text)
	}

	switch info.Lang {
	case whatlanggo.Fra:
		return model.LangFrench
	case whatlanggo.Arb:
		// Arabic script does not rule out Darija.
		if hasDarijaFeatures(lower) {
			return model.LangDarija
		}
		return model.LangArabic
	default:
		// Latin-family or unrecognized codes: French is the closest default.
		return model.LangFrench
	}
}

// DetectBatch applies Detect independently per item.
func (d *Detector) DetectBatch(texts []string) []model.Language {
	labels := make([]model.Language, len(texts))
	for i, text := range texts {
		labels[i] = d.Detect(text)
	}
	return labels
}

// Confidence estimates how certain the detection of label for text is,
// in [0, 1].
func (d *Detector) Confidence(text string, label model.Language) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.5
	}

	lower := strings.ToLower(text)

	switch label {
	case model.LangDarija:
		markers := countMarkers(lower)
		patterns := countPatternMatches(lower)
		score := float64(markers+patterns) / 5
		if score > 1 {
			score = 1
		}
		// Floor at 0.6 once Darija has been chosen.
		if score < 0.6 {
			return 0.6
		}
		return score

	case model.LangArabic:
		arabic, alpha := 0, 0
		for _, r := range text {
			if unicode.IsLetter(r) {
				alpha++
			}
			if r >= 0x0600 && r <= 0x06FF {
				arabic++
			}
		}
		if alpha == 0 {
			return 0.5
		}
		return float64(arabic) / float64(alpha)

	default: // French
		info := whatlanggo.Detect(text)
		if info.Lang == whatlanggo.Fra && info.Confidence > 0 {
			if info.Confidence > 1 {
				return 1
			}
			return info.Confidence
		}
		return 0.7
	}
}

func isDarija(lower string) bool {
	return countMarkers(lower) >= 2 || countPatternMatches(lower) >= 1
}

func hasDarijaFeatures(lower string) bool {
	return countMarkers(lower) >= 1
}

func countMarkers(lower string) int {
	count := 0
	for _, marker := range darijaMarkers {
		if strings.Contains(lower, marker) {
			count++
		}
	}
	return count
}

func countPatternMatches(lower string) int {
	count := 0
	for _, pattern := range darijaPatterns {
		if pattern.MatchString(lower) {
			count++
		}
	}
	return count
}

// detectByScript counts Arabic-range code points against Latin letters.
func detectByScript(text string) model.Language {
	arabic, latin := 0, 0
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case unicode.IsLetter(r) && r < 0x0600:
			latin++
		}
	}

	if arabic > latin {
		if hasDarijaFeatures(strings.ToLower(text)) {
			return model.LangDarija
		}
		return model.LangArabic
	}
	return model.LangFrench
}

// Package themes extracts salient keywords per comment and maps the
// accumulated theme vocabulary into four fixed semantic categories.
package themes

import (
	"regexp"
	"sort"
	"strings"

	"github.com/obennaji/retour/internal/model"
)

// langProfile holds the language-conditioned extraction parameters.
// Adding a language means adding a table entry.
type langProfile struct {
	stopwords map[string]struct{}
	ngramMin  int
	ngramMax  int
}

// minTermFrequency is the number of times a term must occur within one
// comment before the frequency vectorizer surfaces it. Comments too short
// to clear it fall through to simple keyword extraction.
const minTermFrequency = 2

// DefaultTopN is the theme count per comment used by the pipeline.
const DefaultTopN = 5

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// universalStopwords backs the simple-extraction fallback.
var universalStopwords = toSet([]string{
	"le", "la", "les", "un", "une", "de", "du", "et", "ou", "à", "au", "en", "pour",
})

var frenchStopwords = []string{
	"le", "la", "les", "un", "une", "des", "de", "du", "à", "au",
	"et", "ou", "mais", "donc", "or", "ni", "car", "que", "qui",
	"est", "sont", "était", "ont", "a", "as", "avez", "ai",
	"ce", "cet", "cette", "ces", "mon", "ma", "mes", "ton", "ta", "tes",
	"son", "sa", "ses", "notre", "nos", "votre", "vos", "leur", "leurs",
	"je", "tu", "il", "elle", "nous", "vous", "ils", "elles",
	"pour", "par", "avec", "sans", "sur", "sous", "dans", "en",
	"tous", "tout", "toute", "toutes", "bien", "très", "plus", "moins",
	"comme", "aucun", "aucune", "beaucoup", "peu", "assez", "trop",
	"même", "aussi", "encore", "déjà", "jamais", "toujours", "souvent",
	"rien", "quelque", "plusieurs", "quelques", "certains", "certaines",
	"pas", "non", "oui", "si", "ne", "n", "y", "d",
}

var arabicStopwords = []string{
	"في", "من", "إلى", "على", "عن", "هذا", "ذلك", "التي", "الذي",
	"هو", "هي", "أن", "كان", "لم", "لن", "قد", "لكن", "أو", "و",
}

var darijaStopwords = []string{
	"dyal", "dial", "w", "wla", "ola", "bach", "bla",
	"hadi", "hadak", "hadik", "hna", "nta", "nti", "howa", "hia",
}

// Extractor extracts themes from comments. Each text is vectorized alone,
// deliberately: per-item results stay deterministic and term rankings
// never contaminate each other across a batch.
type Extractor struct {
	profiles map[model.Language]langProfile
}

// NewExtractor creates a theme extractor with the built-in per-language
// profiles.
func NewExtractor() *Extractor {
	return &Extractor{
		profiles: map[model.Language]langProfile{
			model.LangFrench: {stopwords: toSet(frenchStopwords), ngramMin: 1, ngramMax: 3},
			model.LangArabic: {stopwords: toSet(arabicStopwords), ngramMin: 1, ngramMax: 2},
			model.LangDarija: {stopwords: toSet(darijaStopwords), ngramMin: 1, ngramMax: 3},
		},
	}
}

// BatchInfo describes one batch extraction run.
type BatchInfo struct {
	Method string `json:"method"`
	NTexts int    `json:"n_texts"`
}

// ExtractOne returns up to topN themes for one comment, highest-frequency
// first. Comments whose terms never repeat yield nothing through the
// vectorizer and degrade to simple keyword extraction.
func (e *Extractor) ExtractOne(text string, language model.Language, topN int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	profile, ok := e.profiles[language]
	if !ok {
		profile = e.profiles[model.LangFrench]
	}

	counts := e.termFrequencies(text, profile)
	if len(counts) == 0 {
		return simpleKeywords(text, topN)
	}

	type scored struct {
		term  string
		count int
	}
	terms := make([]scored, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, scored{term, count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})

	if topN > len(terms) {
		topN = len(terms)
	}
	themes := make([]string, 0, topN)
	for _, s := range terms[:topN] {
		themes = append(themes, s.term)
	}
	return themes
}

// ExtractBatch applies ExtractOne independently per item. No vocabulary is
// shared across the batch.
func (e *Extractor) ExtractBatch(texts []string, languages []model.Language) ([][]string, BatchInfo) {
	if len(texts) == 0 {
		return nil, BatchInfo{}
	}

	all := make([][]string, len(texts))
	for i, text := range texts {
		all[i] = e.ExtractOne(text, languages[i], DefaultTopN)
	}
	return all, BatchInfo{Method: "frequency", NTexts: len(texts)}
}

// termFrequencies tokenizes with the language's stop-word filter, expands
// the configured n-gram range, and keeps terms occurring at least
// minTermFrequency times.
func (e *Extractor) termFrequencies(text string, profile langProfile) map[string]int {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	filtered := tokens[:0:0]
	for _, tok := range tokens {
		if _, stop := profile.stopwords[tok]; !stop {
			filtered = append(filtered, tok)
		}
	}

	counts := make(map[string]int)
	for n := profile.ngramMin; n <= profile.ngramMax; n++ {
		for i := 0; i+n <= len(filtered); i++ {
			counts[strings.Join(filtered[i:i+n], " ")]++
		}
	}

	for term, count := range counts {
		if count < minTermFrequency {
			delete(counts, term)
		}
	}
	return counts
}

// simpleKeywords is the last-resort extraction: whitespace tokens longer
// than three characters, minus a small universal stop-word set, ranked by
// frequency with first-seen order breaking ties.
func simpleKeywords(text string, topN int) []string {
	words := strings.Fields(strings.ToLower(text))

	counts := make(map[string]int)
	var order []string
	for _, word := range words {
		if len([]rune(word)) <= 3 {
			continue
		}
		if _, stop := universalStopwords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if topN > len(order) {
		topN = len(order)
	}
	return order[:topN:topN]
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

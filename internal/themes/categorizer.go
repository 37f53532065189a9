package themes

import (
	"math"
	"strings"

	"github.com/obennaji/retour/internal/model"
)

// Category is one of the four fixed semantic buckets every theme maps to.
type Category string

const (
	CategoryFormationQuality  Category = "Formation Quality"
	CategoryTrainerCompetence Category = "Trainer Competence"
	CategoryLogistics         Category = "Logistics & Organization"
	CategoryApplicability     Category = "Applicability & Usefulness"
)

// categoryOrder fixes the iteration order for matching; the first category
// whose keyword list matches wins.
var categoryOrder = []Category{
	CategoryFormationQuality,
	CategoryTrainerCompetence,
	CategoryLogistics,
	CategoryApplicability,
}

// categoryKeywords maps category -> language -> keyword list. Matching is
// substring overlap in either direction on the lower-cased theme name.
var categoryKeywords = map[Category]map[model.Language][]string{
	CategoryFormationQuality: {
		model.LangFrench: {
			"formation", "contenu", "qualité", "niveau", "profondeur", "structuré", "organisé",
			"excellent", "bon", "mauvais", "nul", "obsolète", "périmé", "nouveau", "clair",
			"théorique", "pratique", "exemples", "exercices", "cas",
		},
		model.LangArabic: {
			"تدريب", "محتوى", "المحتوى", "جودة", "ممتاز", "جيد", "سيء", "قديم", "جداً",
			"واضح", "مفيد", "نظري", "عملي", "أمثلة",
		},
		model.LangDarija: {
			"formation", "contenu", "niveau", "mezyana", "mzyana", "khayba", "top",
			"zina", "practique", "exemples",
		},
	},
	CategoryTrainerCompetence: {
		model.LangFrench: {
			"formateur", "instructeur", "prof", "enseignant", "compétent", "incompétent",
			"préparé", "professionnel", "dynamique", "passionné", "engageant", "monotone",
			"maîtrise", "expert", "expérience", "pédagogique", "communication",
		},
		model.LangArabic: {
			"مدرب", "المدرب", "معلم", "محترف", "مؤهل", "خبرة", "شرح", "يشرح", "تفسير",
			"مستعد", "جاهز",
		},
		model.LangDarija: {
			"formateur", "prof", "instructor", "maalem", "professionnel", "kamel",
			"ma3arafch", "khatar",
		},
	},
	CategoryLogistics: {
		model.LangFrench: {
			"logistique", "organisation", "organisé", "salle", "équipement", "matériel",
			"supports", "horaire", "temps", "durée", "pause", "accueil", "réservation",
			"planification", "coordination", "infrastructure",
		},
		model.LangArabic: {
			"تنظيم", "قاعة", "القاعة", "مكان", "وقت", "الوقت", "ساعات", "مدة", "مرافق",
			"معدات", "صوت",
		},
		model.LangDarija: {
			"organisation", "qa3a", "blassa", "waqt", "lwaqt", "ma9an",
		},
	},
	CategoryApplicability: {
		model.LangFrench: {
			"applicable", "applicabilité", "utile", "pratique", "concret", "réaliste",
			"pertinent", "efficace", "recommande", "valeur", "bénéfice", "impact",
			"résultat", "amélioration", "compétences", "apprises", "acquérir",
		},
		model.LangArabic: {
			"تطبيق", "التطبيق", "عملي", "مفيد", "فائدة", "نتيجة", "تحسين", "مهارات",
			"استفدت", "استفادة", "واقعي",
		},
		model.LangDarija: {
			"practique", "fayda", "nafed", "3jbni", "mazyan", "t3allemt", "استفدت",
		},
	},
}

// Categories returns the four categories in their fixed display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ThemeRef is one theme inside a category breakdown.
type ThemeRef struct {
	Name      string         `json:"name"`
	Frequency int            `json:"frequency"`
	Language  model.Language `json:"language"`
}

// CategoryStats aggregates the themes of one category.
type CategoryStats struct {
	Count          int        `json:"count"`
	TotalFrequency int        `json:"total_frequency"`
	Themes         []ThemeRef `json:"themes"`
	Percentage     float64    `json:"percentage"`
}

// Categorizer maps theme names into the four fixed categories.
type Categorizer struct{}

// NewCategorizer creates a theme categorizer.
func NewCategorizer() *Categorizer {
	return &Categorizer{}
}

// Categorize returns the category for a theme name in the given language.
// Unmatched themes land in Formation Quality; that bucket doubles as the
// deliberate fallback, not a "no match" error.
func (c *Categorizer) Categorize(themeName string, language model.Language) Category {
	lower := strings.ToLower(themeName)

	for _, category := range categoryOrder {
		keywords := categoryKeywords[category][language]
		if keywords == nil {
			keywords = categoryKeywords[category][model.LangFrench]
		}
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) || strings.Contains(keyword, lower) {
				return category
			}
		}
	}

	return CategoryFormationQuality
}

// Breakdown groups themes by category and computes each category's share
// of the grand total frequency, rounded to one decimal. A zero grand total
// leaves every percentage at zero.
func (c *Categorizer) Breakdown(themes []model.Theme) map[Category]*CategoryStats {
	breakdown := make(map[Category]*CategoryStats, len(categoryOrder))
	for _, category := range categoryOrder {
		breakdown[category] = &CategoryStats{}
	}

	for _, theme := range themes {
		category := c.Categorize(theme.Name, theme.Language)
		stats := breakdown[category]
		stats.Count++
		stats.TotalFrequency += theme.Frequency
		stats.Themes = append(stats.Themes, ThemeRef{
			Name:      theme.Name,
			Frequency: theme.Frequency,
			Language:  theme.Language,
		})
	}

	grandTotal := 0
	for _, stats := range breakdown {
		grandTotal += stats.TotalFrequency
	}
	if grandTotal > 0 {
		for _, stats := range breakdown {
			stats.Percentage = math.Round(float64(stats.TotalFrequency)/float64(grandTotal)*1000) / 10
		}
	}

	return breakdown
}

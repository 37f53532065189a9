package sentiment

// Multilingual polarity lexicons for the rule-based fallback. Hits are
// counted as case-insensitive substrings of the lowered comment, so
// multi-word entries ("perte de temps") match too.

var positiveWords = []string{
	// French
	"excellent", "très bien", "parfait", "super", "génial", "bon", "bien",
	"satisfait", "satisfaisant", "intéressant", "utile", "efficace",
	"professionnel", "compétent", "clair", "dynamique", "enrichissant",
	"pertinent", "recommande",
	// Arabic
	"ممتاز", "جيد", "مفيد", "رائع",
	// Darija
	"mezyan", "mzyan", "zwina", "labas", "top", "kamel",
}

var negativeWords = []string{
	// French
	"mauvais", "nul", "décevant", "déçu", "insatisfait", "problème", "difficile",
	"compliqué", "incompréhensible", "ennuyeux", "perte de temps", "catastrophe",
	"inutile", "médiocre", "faible", "horrible", "terrible", "désastre",
	"incompétent", "mal", "pire", "vide", "superficiel", "obsolète",
	"périmé", "désengagé", "agressif", "fausse", "erreur", "pas terrible",
	"manque", "moyenne", "correct sans plus", "pas claire",
	// Arabic
	"سيء", "سيئة", "ضعيف", "قديم", "غير", "لا", "مضيعة",
	// Darija
	"khayb", "khayba", "machi mezyan", "ma3lich", "khsara", "walo",
	"ma kanet", "f9ir", "katastroph",
}

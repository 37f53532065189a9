package lang

import (
	"testing"

	"github.com/obennaji/retour/internal/model"
)

func TestDetect_EmptyDefaultsToFrench(t *testing.T) {
	d := NewDetector()

	for _, text := range []string{"", "   ", "\t\n"} {
		if got := d.Detect(text); got != model.LangFrench {
			t.Errorf("Detect(%q) = %s, want FR", text, got)
		}
		if conf := d.Confidence(text, model.LangFrench); conf != 0.5 {
			t.Errorf("Confidence(%q) = %v, want 0.5", text, conf)
		}
	}
}

func TestDetect_DarijaMarkers(t *testing.T) {
	d := NewDetector()

	// Two or more markers force Darija regardless of script.
	cases := []string{
		"daba bghit ngol wach hadchi mezyan bezzaf",
		"kayn chi haja zwina bezzaf f had formation",
		"l'accueil kan mezyan w l'contenu kayn bezzaf dyal exemples",
	}
	for _, text := range cases {
		if got := d.Detect(text); got != model.LangDarija {
			t.Errorf("Detect(%q) = %s, want DARIJA", text, got)
		}
	}
}

func TestDetect_DarijaConfidenceFloor(t *testing.T) {
	d := NewDetector()

	text := "daba bghit ngol wach hadchi mezyan bezzaf"
	conf := d.Confidence(text, model.LangDarija)
	if conf < 0.6 || conf > 1 {
		t.Errorf("Darija confidence = %v, want within [0.6, 1]", conf)
	}
}

func TestDetect_French(t *testing.T) {
	d := NewDetector()

	text := "La formation était très intéressante et le contenu bien structuré"
	if got := d.Detect(text); got != model.LangFrench {
		t.Errorf("Detect(%q) = %s, want FR", text, got)
	}
}

func TestDetect_Arabic(t *testing.T) {
	d := NewDetector()

	text := "كانت الدورة التدريبية مفيدة جدا والمحتوى واضح والمدرب محترف"
	if got := d.Detect(text); got != model.LangArabic {
		t.Errorf("Detect(%q) = %s, want AR", text, got)
	}

	conf := d.Confidence(text, model.LangArabic)
	if conf <= 0.5 || conf > 1 {
		t.Errorf("Arabic confidence = %v, want within (0.5, 1]", conf)
	}
}

func TestDetect_ScriptHeuristic(t *testing.T) {
	// Digit-only input gives the statistical identifier nothing to work
	// with; majority-Latin then defaults to French.
	if got := detectByScript("1234 ?!"); got != model.LangFrench {
		t.Errorf("detectByScript = %s, want FR", got)
	}
	if got := detectByScript("ممتاز جدا"); got != model.LangArabic {
		t.Errorf("detectByScript = %s, want AR", got)
	}
}

func TestDetect_AlwaysReturnsKnownLabel(t *testing.T) {
	d := NewDetector()

	texts := []string{
		"excellente formation",
		"التكوين جيد",
		"daba safi khlasna",
		"ok",
		"?!#",
	}
	for _, text := range texts {
		label := d.Detect(text)
		if !label.Valid() {
			t.Errorf("Detect(%q) = %q, not a supported label", text, label)
		}
		conf := d.Confidence(text, label)
		if conf < 0 || conf > 1 {
			t.Errorf("Confidence(%q, %s) = %v, outside [0,1]", text, label, conf)
		}
	}
}

func TestDetectBatch_Independent(t *testing.T) {
	d := NewDetector()

	texts := []string{
		"La formation était vraiment excellente",
		"daba bghit ngol wach hadchi mezyan bezzaf",
		"",
	}
	labels := d.DetectBatch(texts)
	if len(labels) != len(texts) {
		t.Fatalf("got %d labels for %d texts", len(labels), len(texts))
	}
	if labels[1] != model.LangDarija {
		t.Errorf("labels[1] = %s, want DARIJA", labels[1])
	}
	if labels[2] != model.LangFrench {
		t.Errorf("labels[2] = %s, want FR for empty text", labels[2])
	}
}

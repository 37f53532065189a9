// Package ingest reads evaluation files into the data model. Only CSV is
// supported; rows that cannot be parsed are skipped with a warning rather
// than failing the file.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/model"
)

// defaultScore fills unparsable rating cells.
const defaultScore = 3

// columnAliases maps each canonical column to the header spellings seen in
// the field. Headers are lowercased and trimmed before matching.
var columnAliases = map[string][]string{
	"evaluation_id":  {"evaluation_id", "eval_id", "id"},
	"formation_id":   {"formation_id", "form_id", "formation"},
	"formation_type": {"type_formation", "formation_type", "type"},
	"trainer_id":     {"formateur_id", "formateur", "trainer_id"},
	"satisfaction":   {"satisfaction", "sat"},
	"content":        {"contenu", "content", "cont"},
	"logistics":      {"logistique", "logistics", "log"},
	"applicability":  {"applicabilite", "applicability", "app"},
	"comment":        {"commentaire", "comment", "comments", "feedback"},
	"language":       {"langue", "language", "lang"},
	"date":           {"date", "evaluation_date", "eval_date"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// Reader parses CSV evaluation files.
type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadCSV reads every well-formed evaluation row from path.
func (r *Reader) ReadCSV(path string) ([]model.Evaluation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	evals, err := r.parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return evals, nil
}

func (r *Reader) parse(src io.Reader, source string) ([]model.Evaluation, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // row validation happens per field below

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var evals []model.Evaluation
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			r.logger.Warn("skipping malformed row",
				zap.Int("row", rowNum),
				zap.Error(err))
			continue
		}

		eval, err := r.rowToEvaluation(record, columns, source)
		if err != nil {
			r.logger.Warn("skipping invalid row",
				zap.Int("row", rowNum),
				zap.Error(err))
			continue
		}
		evals = append(evals, eval)
	}

	r.logger.Info("parsed evaluations from CSV",
		zap.String("file", source),
		zap.Int("count", len(evals)))
	return evals, nil
}

// mapColumns resolves header aliases to canonical names and reports any
// required column that is missing entirely.
func mapColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int)
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		for canonical, aliases := range columnAliases {
			if _, taken := positions[canonical]; taken {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					positions[canonical] = i
					break
				}
			}
		}
	}

	var missing []string
	for canonical := range columnAliases {
		if _, ok := positions[canonical]; !ok {
			missing = append(missing, canonical)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return positions, nil
}

func (r *Reader) rowToEvaluation(record []string, columns map[string]int, source string) (model.Evaluation, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	if field("evaluation_id") == "" {
		return model.Evaluation{}, fmt.Errorf("empty evaluation_id")
	}

	return model.Evaluation{
		ExternalID:    field("evaluation_id"),
		FormationID:   field("formation_id"),
		FormationType: field("formation_type"),
		TrainerID:     field("trainer_id"),
		Satisfaction:  parseScore(field("satisfaction")),
		Content:       parseScore(field("content")),
		Logistics:     parseScore(field("logistics")),
		Applicability: parseScore(field("applicability")),
		Comment:       field("comment"),
		Language:      parseLanguage(field("language")),
		Date:          parseDate(field("date")),
		FileSource:    source,
	}, nil
}

func parseScore(raw string) int {
	if raw == "" {
		return defaultScore
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultScore
	}
	return int(value)
}

// parseLanguage keeps only valid declared codes; anything else means the
// pipeline detects the language itself.
func parseLanguage(raw string) model.Language {
	lang := model.Language(strings.ToUpper(raw))
	if lang.Valid() {
		return lang
	}
	return ""
}

func parseDate(raw string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

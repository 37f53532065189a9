package model

import "time"

// Language identifies one of the three supported language/dialect codes.
type Language string

const (
	LangFrench Language = "FR"
	LangArabic Language = "AR"
	LangDarija Language = "DARIJA"
)

// Valid reports whether l is one of the supported codes.
func (l Language) Valid() bool {
	switch l {
	case LangFrench, LangArabic, LangDarija:
		return true
	}
	return false
}

// Evaluation is one raw training-session evaluation as produced by ingestion.
// The text pipeline reads only Comment and Language; the numeric ratings are
// consumed by insight mining and aggregate statistics.
type Evaluation struct {
	ID            int64     `json:"id"`
	ExternalID    string    `json:"evaluation_id,omitempty"`
	FormationID   string    `json:"formation_id,omitempty"`
	FormationType string    `json:"formation_type,omitempty"`
	TrainerID     string    `json:"trainer_id,omitempty"`

	// Rated criteria, 1-5.
	Satisfaction  int `json:"satisfaction,omitempty"`
	Content       int `json:"content,omitempty"`
	Logistics     int `json:"logistics,omitempty"`
	Applicability int `json:"applicability,omitempty"`

	Comment  string   `json:"comment"`
	Language Language `json:"language,omitempty"` // declared by the respondent; empty means detect

	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
	FileSource string    `json:"file_source,omitempty"`
}

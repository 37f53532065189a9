package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/obennaji/retour/internal/model"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore persists everything in Postgres. The schema is applied on
// startup from the embedded migrations file; all statements are idempotent.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg model.DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertEvaluations(evals []*model.Evaluation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO evaluations (external_id, formation_id, formation_type, trainer_id,
			satisfaction, content, logistics, applicability,
			comment, language, date, file_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	for _, eval := range evals {
		date := eval.Date
		if date.IsZero() {
			date = time.Now()
		}
		err := tx.QueryRow(query,
			eval.ExternalID, eval.FormationID, eval.FormationType, eval.TrainerID,
			eval.Satisfaction, eval.Content, eval.Logistics, eval.Applicability,
			eval.Comment, string(eval.Language), date, eval.FileSource,
		).Scan(&eval.ID, &eval.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListEvaluations(filter EvaluationFilter) ([]model.Evaluation, error) {
	query := `
		SELECT id, external_id, formation_id, formation_type, trainer_id,
			satisfaction, content, logistics, applicability,
			comment, language, date, created_at, file_source
		FROM evaluations
		WHERE ($1 = '' OR formation_type = $1)
		  AND ($2 = '' OR trainer_id = $2)
		  AND ($3::timestamptz IS NULL OR date >= $3)
		  AND ($4::timestamptz IS NULL OR date <= $4)
		ORDER BY date ASC, id ASC`

	var since, until *time.Time
	if !filter.Since.IsZero() {
		since = &filter.Since
	}
	if !filter.Until.IsZero() {
		until = &filter.Until
	}

	rows, err := s.db.Query(query, filter.FormationType, filter.TrainerID, since, until)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []model.Evaluation
	for rows.Next() {
		var eval model.Evaluation
		var lang string
		err := rows.Scan(&eval.ID, &eval.ExternalID, &eval.FormationID, &eval.FormationType,
			&eval.TrainerID, &eval.Satisfaction, &eval.Content, &eval.Logistics,
			&eval.Applicability, &eval.Comment, &lang, &eval.Date, &eval.CreatedAt,
			&eval.FileSource)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		eval.Language = model.Language(lang)
		out = append(out, eval)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) CommitBatch(analyses []*model.Analysis, clusters []*model.Cluster, themes []ThemeDelta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	numberToID := make(map[int64]int64, len(clusters))
	clusterQuery := `
		INSERT INTO clusters (label, number, size, representative_themes, avg_sentiment, centroid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	for _, cluster := range clusters {
		err := tx.QueryRow(clusterQuery,
			cluster.Label, cluster.Number, cluster.Size,
			pq.Array(cluster.RepresentativeThemes), cluster.AvgSentiment,
			pq.Array(cluster.Centroid),
		).Scan(&cluster.ID, &cluster.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert cluster: %w", err)
		}
		numberToID[int64(cluster.Number)] = cluster.ID
	}

	analysisQuery := `
		INSERT INTO analyses (evaluation_id, detected_language, sentiment, sentiment_score,
			sentiment_label, themes, embedding, cluster_id, processed_at, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	for _, analysis := range analyses {
		var clusterID *int64
		if analysis.ClusterID != nil {
			if id, ok := numberToID[*analysis.ClusterID]; ok {
				stored := id
				clusterID = &stored
				analysis.ClusterID = &stored
			} else {
				clusterID = analysis.ClusterID
			}
		}
		processedAt := analysis.ProcessedAt
		if processedAt.IsZero() {
			processedAt = time.Now()
		}
		err := tx.QueryRow(analysisQuery,
			analysis.EvaluationID, string(analysis.DetectedLanguage),
			string(analysis.Sentiment), analysis.SentimentScore, analysis.SentimentLabel,
			pq.Array(analysis.Themes), pq.Array(analysis.Embedding),
			clusterID, processedAt, analysis.ModelVersion,
		).Scan(&analysis.ID)
		if err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}
	}

	// Frequency counters only ever grow; keywords accumulate distinct values.
	themeQuery := `
		INSERT INTO themes (name, language, frequency, keywords)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, language) DO UPDATE SET
			frequency = themes.frequency + EXCLUDED.frequency,
			keywords = ARRAY(SELECT DISTINCT unnest(themes.keywords || EXCLUDED.keywords)),
			updated_at = NOW()`
	for _, delta := range themes {
		if _, err := tx.Exec(themeQuery, delta.Name, string(delta.Language),
			delta.Frequency, pq.Array(delta.Keywords)); err != nil {
			return fmt.Errorf("upsert theme %q: %w", delta.Name, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) TopThemes(language model.Language, limit int) ([]model.Theme, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, name, language, frequency, keywords, created_at, updated_at
		FROM themes
		WHERE ($1 = '' OR language = $1)
		ORDER BY frequency DESC, name ASC
		LIMIT $2`

	rows, err := s.db.Query(query, string(language), limit)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	var out []model.Theme
	for rows.Next() {
		var theme model.Theme
		var lang string
		if err := rows.Scan(&theme.ID, &theme.Name, &lang, &theme.Frequency,
			pq.Array(&theme.Keywords), &theme.CreatedAt, &theme.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		theme.Language = model.Language(lang)
		out = append(out, theme)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FormationSatisfaction() ([]FormationStat, error) {
	query := `
		SELECT formation_type, AVG(satisfaction), COUNT(*)
		FROM evaluations
		WHERE formation_type <> '' AND satisfaction > 0
		GROUP BY formation_type
		ORDER BY formation_type`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query formation satisfaction: %w", err)
	}
	defer rows.Close()

	var stats []FormationStat
	for rows.Next() {
		var stat FormationStat
		if err := rows.Scan(&stat.FormationType, &stat.AvgScore, &stat.Count); err != nil {
			return nil, fmt.Errorf("scan formation stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) TrainerSatisfaction() ([]TrainerStat, error) {
	query := `
		SELECT trainer_id, AVG(satisfaction), COUNT(*)
		FROM evaluations
		WHERE trainer_id <> '' AND satisfaction > 0
		GROUP BY trainer_id
		ORDER BY trainer_id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query trainer satisfaction: %w", err)
	}
	defer rows.Close()

	var stats []TrainerStat
	for rows.Next() {
		var stat TrainerStat
		if err := rows.Scan(&stat.TrainerID, &stat.AvgScore, &stat.Count); err != nil {
			return nil, fmt.Errorf("scan trainer stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) SentimentCountsSince(since time.Time) (SentimentCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE a.sentiment = 'positive'),
			COUNT(*) FILTER (WHERE a.sentiment = 'negative'),
			COUNT(*) FILTER (WHERE a.sentiment = 'neutral')
		FROM analyses a
		LEFT JOIN evaluations e ON e.id = a.evaluation_id
		WHERE $1::timestamptz IS NULL OR e.date >= $1`

	var sincePtr *time.Time
	if !since.IsZero() {
		sincePtr = &since
	}

	var counts SentimentCounts
	err := s.db.QueryRow(query, sincePtr).Scan(&counts.Positive, &counts.Negative, &counts.Neutral)
	if err != nil {
		return SentimentCounts{}, fmt.Errorf("query sentiment counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) SaveInsights(insights []*model.Insight) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO insights (kind, title, description, data, confidence,
			formation_type, trainer_id, date_range_start, date_range_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	for _, insight := range insights {
		data := insight.Data
		if data == nil {
			data = map[string]any{}
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal insight data: %w", err)
		}
		err = tx.QueryRow(query,
			string(insight.Kind), insight.Title, insight.Description, payload,
			insight.Confidence, insight.FormationType, insight.TrainerID,
			insight.DateRangeStart, insight.DateRangeEnd,
		).Scan(&insight.ID, &insight.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) RecentInsights(limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, title, description, data, confidence,
			formation_type, trainer_id, date_range_start, date_range_end, created_at
		FROM insights
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var insight model.Insight
		var kind string
		var payload []byte
		err := rows.Scan(&insight.ID, &kind, &insight.Title, &insight.Description,
			&payload, &insight.Confidence, &insight.FormationType, &insight.TrainerID,
			&insight.DateRangeStart, &insight.DateRangeEnd, &insight.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insight.Kind = model.InsightKind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &insight.Data); err != nil {
				return nil, fmt.Errorf("unmarshal insight data: %w", err)
			}
		}
		out = append(out, insight)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

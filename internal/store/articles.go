package store

import (
	"database/sql"
	"fmt"
	"time"
)

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var publishedAt *string
	var createdAt string
	if err := row.Scan(&a.ID, &a.Title, &a.Category, &a.Sentiment, &a.Importance, &publishedAt, &createdAt); err != nil {
		return nil, err
	}
	if publishedAt != nil {
		a.PublishedAt = parseTime(*publishedAt)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// UpsertArticle stores a normalized inbound article record. Re-ingesting
// the same id refreshes its labels.
func (s *Store) UpsertArticle(a *Article) error {
	var publishedAt *string
	if !a.PublishedAt.IsZero() {
		p := fmtTime(a.PublishedAt)
		publishedAt = &p
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.conn.Exec(`
		INSERT INTO articles (id, title, category, sentiment, importance, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			sentiment = excluded.sentiment,
			importance = excluded.importance,
			published_at = excluded.published_at`,
		a.ID, a.Title, a.Category, a.Sentiment, a.Importance, publishedAt, fmtTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", a.ID, err)
	}
	return nil
}

// GetArticleByID returns the article, or nil if absent.
func (s *Store) GetArticleByID(id string) (*Article, error) {
	row := s.conn.QueryRow(
		"SELECT id, title, category, sentiment, importance, published_at, created_at FROM articles WHERE id = ?", id,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return a, nil
}

// ArticleCountSince counts articles ingested within the window.
func (s *Store) ArticleCountSince(sinceHours float64) (int, error) {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM articles WHERE created_at >= ?", s.cutoff(sinceHours)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("article count: %w", err)
	}
	return count, nil
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	Clusters    int
	Articles    int
	Entities    int
	HistoryRows int
	Anomalies   int
	LastUpdated time.Time
}

// GetStats returns aggregate row counts.
func (s *Store) GetStats() (*Stats, error) {
	var st Stats
	var lastUpdated *string
	row := s.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM clusters),
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM heat_history),
			(SELECT COUNT(*) FROM clusters WHERE is_anomaly = 1),
			(SELECT MAX(updated_at) FROM clusters)`)
	if err := row.Scan(&st.Clusters, &st.Articles, &st.Entities, &st.HistoryRows, &st.Anomalies, &lastUpdated); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if lastUpdated != nil {
		st.LastUpdated = parseTime(*lastUpdated)
	}
	return &st, nil
}

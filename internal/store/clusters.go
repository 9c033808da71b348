package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// penaltyTable maps a title's duplicate index to the fraction of its heat
// delta that still counts. Repeat coverage of the same headline gets
// sharply diminishing returns.
var penaltyTable = [...]float64{1.0, 0.15, 0.05, 0.02}

// penaltyFloor is the multiplier below which a duplicate contributes no
// heat at all.
const penaltyFloor = 0.01

const clusterColumns = `id, topic, topic_key, summary, category, keywords,
	heat_score, article_count, unique_title_count, trend_direction, urgency,
	sub_event_type, heat_velocity, acceleration, predicted_heat,
	prediction_confidence, is_cross_category, parent_cluster_id,
	entity_heat_score, source_authority_score, composite_rank_score,
	is_anomaly, anomaly_type, anomaly_score, lifecycle_stage,
	first_seen, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCluster(row rowScanner) (*StoryCluster, error) {
	var c StoryCluster
	var keywordsJSON *string
	var firstSeen, createdAt, updatedAt string
	err := row.Scan(
		&c.ID, &c.Topic, &c.TopicKey, &c.Summary, &c.Category, &keywordsJSON,
		&c.HeatScore, &c.ArticleCount, &c.UniqueTitleCount, &c.TrendDirection,
		&c.Urgency, &c.SubEventType, &c.HeatVelocity, &c.Acceleration,
		&c.PredictedHeat, &c.PredictionConfidence, &c.IsCrossCategory,
		&c.ParentClusterID, &c.EntityHeatScore, &c.SourceAuthorityScore,
		&c.CompositeRankScore, &c.IsAnomaly, &c.AnomalyType, &c.AnomalyScore,
		&c.LifecycleStage, &firstSeen, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if keywordsJSON != nil {
		if err := json.Unmarshal([]byte(*keywordsJSON), &c.Keywords); err != nil {
			c.Keywords = nil
		}
	}
	c.FirstSeen = parseTime(firstSeen)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// UpsertCluster creates the cluster if its id is unseen, otherwise updates
// its descriptive fields. CreatedAt and FirstSeen are set once on creation
// and preserved on every later upsert. The topic key is always recomputed
// from the topic.
func (s *Store) UpsertCluster(c *StoryCluster) error {
	topicKey := NormalizeTopicKey(c.Topic)
	now := fmtTime(s.now())

	var keywordsJSON *string
	if c.Keywords != nil {
		data, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("encoding keywords: %w", err)
		}
		j := string(data)
		keywordsJSON = &j
	}

	var exists int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM clusters WHERE id = ?", c.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("upsert cluster %s: %w", c.ID, err)
	}

	if exists == 0 {
		urgency := c.Urgency
		if urgency == "" {
			urgency = UrgencyLow
		}
		_, err = s.conn.Exec(`
			INSERT INTO clusters (id, topic, topic_key, summary, category, keywords,
				urgency, sub_event_type, first_seen, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Topic, topicKey, c.Summary, c.Category, keywordsJSON,
			urgency, c.SubEventType, now, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert cluster %s: %w", c.ID, err)
		}
		return nil
	}

	_, err = s.conn.Exec(`
		UPDATE clusters
		SET topic = ?, topic_key = ?, summary = ?, category = ?, keywords = ?,
			sub_event_type = COALESCE(?, sub_event_type), updated_at = ?
		WHERE id = ?`,
		c.Topic, topicKey, c.Summary, c.Category, keywordsJSON,
		c.SubEventType, now, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update cluster %s: %w", c.ID, err)
	}
	return nil
}

// GetClusterIDByTopicKey returns the most recently updated cluster whose
// topic key matches the normalized topic, or "" if none matches.
func (s *Store) GetClusterIDByTopicKey(topic string) (string, error) {
	key := NormalizeTopicKey(topic)
	var id string
	err := s.conn.QueryRow(
		"SELECT id FROM clusters WHERE topic_key = ? ORDER BY updated_at DESC LIMIT 1", key,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup topic key %q: %w", key, err)
	}
	return id, nil
}

// AddArticleToCluster attaches an article to a cluster as one atomic unit:
// link insert (idempotent), fingerprint bookkeeping, derived counter
// recompute and the penalty-adjusted heat bump. Attaching an already-linked
// article is a complete no-op, leaving updated_at untouched. The counters
// are always recomputed from the link tables rather than incremented, so
// retried or concurrent calls converge on the true counts.
func (s *Store) AddArticleToCluster(clusterID, articleID, fingerprint string, heatDelta float64, trendDirection string) (AttachResult, error) {
	if trendDirection == "" {
		trendDirection = TrendNeutral
	}
	now := fmtTime(s.now())

	tx, err := s.conn.Begin()
	if err != nil {
		return AttachResult{}, fmt.Errorf("attach article %s to %s: %w", articleID, clusterID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO cluster_articles (cluster_id, article_id, added_at, trend_direction)
		VALUES (?, ?, ?, ?)`,
		clusterID, articleID, now, trendDirection,
	)
	if err != nil {
		return AttachResult{}, fmt.Errorf("attach article %s to %s: %w", articleID, clusterID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return AttachResult{}, fmt.Errorf("attach article %s to %s: %w", articleID, clusterID, err)
	}
	// A re-attach writes nothing: the deferred rollback discards the
	// no-op insert and updated_at stays put for recency ordering.
	if inserted == 0 {
		return AttachResult{}, nil
	}

	duplicateIndex := 0
	if fingerprint != "" {
		var count int
		err := tx.QueryRow(
			"SELECT count FROM title_fingerprints WHERE cluster_id = ? AND fingerprint = ?",
			clusterID, fingerprint,
		).Scan(&count)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(
				"INSERT INTO title_fingerprints (cluster_id, fingerprint, count, first_seen) VALUES (?, ?, 1, ?)",
				clusterID, fingerprint, now,
			); err != nil {
				return AttachResult{}, fmt.Errorf("recording fingerprint for %s: %w", clusterID, err)
			}
		case err != nil:
			return AttachResult{}, fmt.Errorf("recording fingerprint for %s: %w", clusterID, err)
		default:
			duplicateIndex = count
			if _, err := tx.Exec(
				"UPDATE title_fingerprints SET count = count + 1 WHERE cluster_id = ? AND fingerprint = ?",
				clusterID, fingerprint,
			); err != nil {
				return AttachResult{}, fmt.Errorf("recording fingerprint for %s: %w", clusterID, err)
			}
		}
	}

	idx := duplicateIndex
	if idx >= len(penaltyTable) {
		idx = len(penaltyTable) - 1
	}
	penalty := penaltyTable[idx]

	var articleCount, titleCount int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM cluster_articles WHERE cluster_id = ?", clusterID,
	).Scan(&articleCount); err != nil {
		return AttachResult{}, fmt.Errorf("recount articles for %s: %w", clusterID, err)
	}
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM title_fingerprints WHERE cluster_id = ?", clusterID,
	).Scan(&titleCount); err != nil {
		return AttachResult{}, fmt.Errorf("recount fingerprints for %s: %w", clusterID, err)
	}

	bump := 0.0
	if penalty > penaltyFloor {
		bump = heatDelta * penalty
	}

	if _, err := tx.Exec(`
		UPDATE clusters
		SET article_count = ?, unique_title_count = ?, heat_score = heat_score + ?, updated_at = ?
		WHERE id = ?`,
		articleCount, titleCount, bump, now, clusterID,
	); err != nil {
		return AttachResult{}, fmt.Errorf("updating cluster %s: %w", clusterID, err)
	}

	if err := tx.Commit(); err != nil {
		return AttachResult{}, fmt.Errorf("attach article %s to %s: %w", articleID, clusterID, err)
	}

	return AttachResult{WasNew: true, DuplicateIndex: duplicateIndex, PenaltyMultiplier: penalty}, nil
}

// GetClusterByID returns the cluster, or nil if it does not exist.
func (s *Store) GetClusterByID(id string) (*StoryCluster, error) {
	row := s.conn.QueryRow("SELECT "+clusterColumns+" FROM clusters WHERE id = ?", id)
	c, err := scanCluster(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster %s: %w", id, err)
	}
	return c, nil
}

// GetHotClusters returns clusters updated within the window ordered by
// heat score descending, optionally filtered by category.
func (s *Store) GetHotClusters(limit int, sinceHours float64, category string) ([]StoryCluster, error) {
	query := "SELECT " + clusterColumns + " FROM clusters WHERE updated_at >= ?"
	args := []any{s.cutoff(sinceHours)}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY heat_score DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("hot clusters: %w", err)
	}
	defer rows.Close()

	var clusters []StoryCluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("hot clusters: %w", err)
		}
		clusters = append(clusters, *c)
	}
	return clusters, rows.Err()
}

// GetClusterDetails returns the cluster with its linked articles, or nil
// if the cluster does not exist.
func (s *Store) GetClusterDetails(id string) (*ClusterDetails, error) {
	c, err := s.GetClusterByID(id)
	if err != nil || c == nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT a.id, a.title, a.category, a.sentiment, a.importance, a.published_at, a.created_at
		FROM articles a
		JOIN cluster_articles ca ON ca.article_id = a.id
		WHERE ca.cluster_id = ?
		ORDER BY ca.added_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("cluster details %s: %w", id, err)
	}
	defer rows.Close()

	details := &ClusterDetails{Cluster: *c}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("cluster details %s: %w", id, err)
		}
		details.Articles = append(details.Articles, *a)
	}
	return details, rows.Err()
}

const maxSampleTitles = 20

// GetClusterSampleTitles returns the cluster's most recent article titles.
func (s *Store) GetClusterSampleTitles(clusterID string, limit int) ([]string, error) {
	if limit <= 0 || limit > maxSampleTitles {
		limit = maxSampleTitles
	}
	rows, err := s.conn.Query(`
		SELECT a.title
		FROM articles a
		JOIN cluster_articles ca ON ca.article_id = a.id
		WHERE ca.cluster_id = ?
		ORDER BY COALESCE(a.published_at, a.created_at) DESC
		LIMIT ?`, clusterID, limit)
	if err != nil {
		return nil, fmt.Errorf("sample titles %s: %w", clusterID, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("sample titles %s: %w", clusterID, err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// MergeClusters folds the source cluster into the target: article links
// move over (duplicates dropped), heat is added, counters recomputed and
// the source row deleted. A no-op result is returned when the ids are
// equal or either cluster is missing.
func (s *Store) MergeClusters(targetID, sourceID string) (MergeResult, error) {
	if targetID == sourceID || targetID == "" || sourceID == "" {
		return MergeResult{}, nil
	}

	targetExists, err := s.ClusterExists(targetID)
	if err != nil {
		return MergeResult{}, err
	}
	sourceExists, err := s.ClusterExists(sourceID)
	if err != nil {
		return MergeResult{}, err
	}
	if !targetExists || !sourceExists {
		return MergeResult{}, nil
	}

	now := fmtTime(s.now())

	tx, err := s.conn.Begin()
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE cluster_articles SET cluster_id = ?
		WHERE cluster_id = ?
		AND article_id NOT IN (SELECT article_id FROM cluster_articles WHERE cluster_id = ?)`,
		targetID, sourceID, targetID,
	)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}

	// Links the target already had are duplicates, not moves.
	if _, err := tx.Exec("DELETE FROM cluster_articles WHERE cluster_id = ?", sourceID); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}
	if _, err := tx.Exec("DELETE FROM title_fingerprints WHERE cluster_id = ?", sourceID); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}

	var sourceHeat float64
	if err := tx.QueryRow("SELECT heat_score FROM clusters WHERE id = ?", sourceID).Scan(&sourceHeat); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}
	if _, err := tx.Exec("DELETE FROM clusters WHERE id = ?", sourceID); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}

	var articleCount int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM cluster_articles WHERE cluster_id = ?", targetID,
	).Scan(&articleCount); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}

	if _, err := tx.Exec(`
		UPDATE clusters
		SET heat_score = heat_score + ?, article_count = ?, updated_at = ?
		WHERE id = ?`,
		sourceHeat, articleCount, now, targetID,
	); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}

	if err := tx.Commit(); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", sourceID, targetID, err)
	}
	return MergeResult{Moved: int(moved), Deleted: true}, nil
}

// ClusterExists reports whether a cluster with the given id exists.
func (s *Store) ClusterExists(id string) (bool, error) {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM clusters WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("cluster exists %s: %w", id, err)
	}
	return count > 0, nil
}

// FindClusterIDsByArticleIDs maps each article id to the cluster it is
// linked to. Articles without a link are absent from the result.
func (s *Store) FindClusterIDsByArticleIDs(articleIDs []string) (map[string]string, error) {
	if len(articleIDs) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.Repeat("?,", len(articleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(articleIDs))
	for i, id := range articleIDs {
		args[i] = id
	}

	rows, err := s.conn.Query(
		"SELECT article_id, cluster_id FROM cluster_articles WHERE article_id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find clusters by articles: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var articleID, clusterID string
		if err := rows.Scan(&articleID, &clusterID); err != nil {
			return nil, fmt.Errorf("find clusters by articles: %w", err)
		}
		result[articleID] = clusterID
	}
	return result, rows.Err()
}

// ClusterIDsUpdatedSince returns ids of clusters touched within the window,
// most recently updated first. Used by the periodic sweep.
func (s *Store) ClusterIDsUpdatedSince(sinceHours float64) ([]string, error) {
	rows, err := s.conn.Query(
		"SELECT id FROM clusters WHERE updated_at >= ? ORDER BY updated_at DESC",
		s.cutoff(sinceHours),
	)
	if err != nil {
		return nil, fmt.Errorf("clusters updated since: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("clusters updated since: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AnomalousClusters returns currently flagged clusters by anomaly score.
func (s *Store) AnomalousClusters(limit int) ([]StoryCluster, error) {
	rows, err := s.conn.Query(
		"SELECT "+clusterColumns+" FROM clusters WHERE is_anomaly = 1 ORDER BY anomaly_score DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("anomalous clusters: %w", err)
	}
	defer rows.Close()

	var clusters []StoryCluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("anomalous clusters: %w", err)
		}
		clusters = append(clusters, *c)
	}
	return clusters, rows.Err()
}

// UpdateClusterTrend persists the analyzer's derived fields on the cluster.
func (s *Store) UpdateClusterTrend(id string, velocity, acceleration, predictedHeat, confidence float64, stage, trendDirection string) error {
	_, err := s.conn.Exec(`
		UPDATE clusters
		SET heat_velocity = ?, acceleration = ?, predicted_heat = ?,
			prediction_confidence = ?, lifecycle_stage = ?, trend_direction = ?
		WHERE id = ?`,
		velocity, acceleration, predictedHeat, confidence, stage, trendDirection, id,
	)
	if err != nil {
		return fmt.Errorf("update trend for %s: %w", id, err)
	}
	return nil
}

// SetCompositeRank persists the composite rank score on the cluster.
func (s *Store) SetCompositeRank(id string, score float64) error {
	_, err := s.conn.Exec("UPDATE clusters SET composite_rank_score = ? WHERE id = ?", score, id)
	if err != nil {
		return fmt.Errorf("set composite rank for %s: %w", id, err)
	}
	return nil
}

// SetAnomaly persists or clears the anomaly flags on the cluster.
func (s *Store) SetAnomaly(id string, isAnomaly bool, anomalyType *string, score float64) error {
	_, err := s.conn.Exec(
		"UPDATE clusters SET is_anomaly = ?, anomaly_type = ?, anomaly_score = ? WHERE id = ?",
		isAnomaly, anomalyType, score, id,
	)
	if err != nil {
		return fmt.Errorf("set anomaly for %s: %w", id, err)
	}
	return nil
}

// AddClusterEntityHeat accumulates entity-attributed heat on the cluster.
func (s *Store) AddClusterEntityHeat(id string, delta float64) error {
	_, err := s.conn.Exec("UPDATE clusters SET entity_heat_score = entity_heat_score + ? WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("add entity heat for %s: %w", id, err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// trendingLinkThreshold is the number of cluster links inside the window
// above which an entity is considered trending UP.
const trendingLinkThreshold = 5

// FindOrCreateEntity looks an entity up by normalized name. On a hit the
// occurrence count and last-seen timestamp are bumped; on a miss the
// entity is created. Returns the entity id.
func (s *Store) FindOrCreateEntity(name, entityType string) (int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	now := fmtTime(s.now())

	var id int64
	err := s.conn.QueryRow("SELECT id FROM entities WHERE normalized_name = ?", normalized).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := s.conn.Exec(`
			INSERT INTO entities (entity_name, entity_type, normalized_name, first_seen, last_seen, occurrence_count)
			VALUES (?, ?, ?, ?, ?, 1)`,
			name, entityType, normalized, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("create entity %q: %w", name, err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("find entity %q: %w", name, err)
	}

	if _, err := s.conn.Exec(
		"UPDATE entities SET occurrence_count = occurrence_count + 1, last_seen = ? WHERE id = ?",
		now, id,
	); err != nil {
		return 0, fmt.Errorf("bump entity %q: %w", name, err)
	}
	return id, nil
}

// GetEntityByID returns the entity, or nil if absent.
func (s *Store) GetEntityByID(id int64) (*NamedEntity, error) {
	var e NamedEntity
	var firstSeen, lastSeen string
	err := s.conn.QueryRow(`
		SELECT id, entity_name, entity_type, normalized_name, first_seen, last_seen, occurrence_count
		FROM entities WHERE id = ?`, id,
	).Scan(&e.ID, &e.EntityName, &e.EntityType, &e.NormalizedName, &firstSeen, &lastSeen, &e.OccurrenceCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}
	e.FirstSeen = parseTime(firstSeen)
	e.LastSeen = parseTime(lastSeen)
	return &e, nil
}

// LinkEntityToArticle records that an entity appears in an article.
// Repeat links are ignored.
func (s *Store) LinkEntityToArticle(entityID int64, articleID string, confidence float64) error {
	_, err := s.conn.Exec(`
		INSERT OR IGNORE INTO entity_articles (entity_id, article_id, confidence, linked_at)
		VALUES (?, ?, ?, ?)`,
		entityID, articleID, confidence, fmtTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("link entity %d to article %s: %w", entityID, articleID, err)
	}
	return nil
}

// UpdateEntityClusterHeat accumulates an entity's heat attribution to a
// cluster, bumping the per-pair article count on every call.
func (s *Store) UpdateEntityClusterHeat(entityID int64, clusterID string, heatContribution float64) error {
	now := fmtTime(s.now())
	_, err := s.conn.Exec(`
		INSERT INTO entity_clusters (entity_id, cluster_id, article_count, heat_contribution, first_linked, last_linked)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(entity_id, cluster_id) DO UPDATE SET
			article_count = article_count + 1,
			heat_contribution = heat_contribution + excluded.heat_contribution,
			last_linked = excluded.last_linked`,
		entityID, clusterID, heatContribution, now, now,
	)
	if err != nil {
		return fmt.Errorf("entity %d cluster %s heat: %w", entityID, clusterID, err)
	}
	return nil
}

// GetTrendingEntities ranks entities by heat accrued across clusters
// updated within the window. An entity trending across more than
// trendingLinkThreshold clusters inside the window reads UP.
func (s *Store) GetTrendingEntities(limit int, hours float64) ([]EntityHeat, error) {
	cutoff := s.cutoff(hours)
	rows, err := s.conn.Query(`
		SELECT e.id, e.entity_name, e.entity_type,
			SUM(ec.heat_contribution) AS total_heat,
			COUNT(ec.cluster_id) AS cluster_count,
			SUM(CASE WHEN ec.last_linked >= ? THEN 1 ELSE 0 END) AS recent_links
		FROM entities e
		JOIN entity_clusters ec ON ec.entity_id = e.id
		JOIN clusters c ON c.id = ec.cluster_id
		WHERE c.updated_at >= ?
		GROUP BY e.id, e.entity_name, e.entity_type
		ORDER BY total_heat DESC
		LIMIT ?`, cutoff, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("trending entities: %w", err)
	}
	defer rows.Close()

	var trending []EntityHeat
	for rows.Next() {
		var eh EntityHeat
		var recentLinks int
		if err := rows.Scan(&eh.EntityID, &eh.EntityName, &eh.EntityType, &eh.TotalHeat, &eh.ClusterCount, &recentLinks); err != nil {
			return nil, fmt.Errorf("trending entities: %w", err)
		}
		eh.TrendingDirection = TrendNeutral
		if recentLinks > trendingLinkThreshold {
			eh.TrendingDirection = TrendUp
		}
		trending = append(trending, eh)
	}
	return trending, rows.Err()
}

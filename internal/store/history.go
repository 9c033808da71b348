package store

import (
	"database/sql"
	"fmt"
)

// AppendHeatHistory records an immutable heat snapshot for a cluster.
// Velocity is the delta against the most recent prior point (0 if the
// cluster has no history yet) and is mirrored onto the cluster's
// heat_velocity field in the same transaction. Returns the velocity.
func (s *Store) AppendHeatHistory(clusterID string, heatScore float64, articleCount, uniqueTitleCount int) (float64, error) {
	now := fmtTime(s.now())

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("append heat history %s: %w", clusterID, err)
	}
	defer tx.Rollback()

	var prevHeat float64
	velocity := 0.0
	err = tx.QueryRow(
		"SELECT heat_score FROM heat_history WHERE cluster_id = ? ORDER BY id DESC LIMIT 1",
		clusterID,
	).Scan(&prevHeat)
	switch {
	case err == sql.ErrNoRows:
		// first point
	case err != nil:
		return 0, fmt.Errorf("append heat history %s: %w", clusterID, err)
	default:
		velocity = heatScore - prevHeat
	}

	if _, err := tx.Exec(`
		INSERT INTO heat_history (cluster_id, heat_score, article_count, unique_title_count, velocity, ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clusterID, heatScore, articleCount, uniqueTitleCount, velocity, now,
	); err != nil {
		return 0, fmt.Errorf("append heat history %s: %w", clusterID, err)
	}

	if _, err := tx.Exec(
		"UPDATE clusters SET heat_velocity = ? WHERE id = ?", velocity, clusterID,
	); err != nil {
		return 0, fmt.Errorf("append heat history %s: %w", clusterID, err)
	}

	return velocity, tx.Commit()
}

func scanHistory(rows *sql.Rows) ([]HeatHistoryPoint, error) {
	var points []HeatHistoryPoint
	for rows.Next() {
		var p HeatHistoryPoint
		var ts string
		if err := rows.Scan(&p.ID, &p.ClusterID, &p.HeatScore, &p.ArticleCount, &p.UniqueTitleCount, &p.Velocity, &ts); err != nil {
			return nil, err
		}
		p.Timestamp = parseTime(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetHeatHistory returns the cluster's snapshots, most recent first.
func (s *Store) GetHeatHistory(clusterID string, limit int) ([]HeatHistoryPoint, error) {
	rows, err := s.conn.Query(`
		SELECT id, cluster_id, heat_score, article_count, unique_title_count, velocity, ts
		FROM heat_history WHERE cluster_id = ?
		ORDER BY id DESC LIMIT ?`, clusterID, limit)
	if err != nil {
		return nil, fmt.Errorf("heat history %s: %w", clusterID, err)
	}
	defer rows.Close()
	points, err := scanHistory(rows)
	if err != nil {
		return nil, fmt.Errorf("heat history %s: %w", clusterID, err)
	}
	return points, nil
}

// GetHeatHistorySince returns the cluster's snapshots inside the window,
// oldest first, ready for trend analysis.
func (s *Store) GetHeatHistorySince(clusterID string, windowHours float64) ([]HeatHistoryPoint, error) {
	rows, err := s.conn.Query(`
		SELECT id, cluster_id, heat_score, article_count, unique_title_count, velocity, ts
		FROM heat_history WHERE cluster_id = ? AND ts >= ?
		ORDER BY id ASC`, clusterID, s.cutoff(windowHours))
	if err != nil {
		return nil, fmt.Errorf("heat history window %s: %w", clusterID, err)
	}
	defer rows.Close()
	points, err := scanHistory(rows)
	if err != nil {
		return nil, fmt.Errorf("heat history window %s: %w", clusterID, err)
	}
	return points, nil
}

package store

import (
	"errors"
	"fmt"
)

// ErrSelfReference is returned when a cross-reference or hierarchy edge
// would point a cluster at itself.
var ErrSelfReference = errors.New("cluster cannot reference itself")

// CreateCrossRef records a soft reference between two clusters and marks
// both as cross-category. Self-references are rejected.
func (s *Store) CreateCrossRef(sourceID, targetID, referenceType string, confidence float64) error {
	if sourceID == targetID {
		return ErrSelfReference
	}
	now := fmtTime(s.now())

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("crossref %s -> %s: %w", sourceID, targetID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO cluster_crossrefs (source_cluster_id, target_cluster_id, reference_type, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sourceID, targetID, referenceType, confidence, now,
	); err != nil {
		return fmt.Errorf("crossref %s -> %s: %w", sourceID, targetID, err)
	}

	if _, err := tx.Exec(
		"UPDATE clusters SET is_cross_category = 1 WHERE id IN (?, ?)", sourceID, targetID,
	); err != nil {
		return fmt.Errorf("crossref %s -> %s: %w", sourceID, targetID, err)
	}

	return tx.Commit()
}

// CreateHierarchy records a parent/child edge and sets the child's parent
// pointer. Self-references are rejected.
func (s *Store) CreateHierarchy(parentID, childID, relationshipType string) error {
	if parentID == childID {
		return ErrSelfReference
	}
	now := fmtTime(s.now())

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("hierarchy %s -> %s: %w", parentID, childID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO cluster_hierarchy (parent_cluster_id, child_cluster_id, relationship_type, created_at)
		VALUES (?, ?, ?, ?)`,
		parentID, childID, relationshipType, now,
	); err != nil {
		return fmt.Errorf("hierarchy %s -> %s: %w", parentID, childID, err)
	}

	if _, err := tx.Exec(
		"UPDATE clusters SET parent_cluster_id = ? WHERE id = ?", parentID, childID,
	); err != nil {
		return fmt.Errorf("hierarchy %s -> %s: %w", parentID, childID, err)
	}

	return tx.Commit()
}

// GetRelatedClusters returns cross-references touching the cluster on
// either side, highest confidence first.
func (s *Store) GetRelatedClusters(clusterID string, limit int) ([]ClusterCrossRef, error) {
	rows, err := s.conn.Query(`
		SELECT id, source_cluster_id, target_cluster_id, reference_type, confidence, created_at
		FROM cluster_crossrefs
		WHERE source_cluster_id = ? OR target_cluster_id = ?
		ORDER BY confidence DESC
		LIMIT ?`, clusterID, clusterID, limit)
	if err != nil {
		return nil, fmt.Errorf("related clusters %s: %w", clusterID, err)
	}
	defer rows.Close()

	var refs []ClusterCrossRef
	for rows.Next() {
		var r ClusterCrossRef
		var createdAt string
		if err := rows.Scan(&r.ID, &r.SourceClusterID, &r.TargetClusterID, &r.ReferenceType, &r.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("related clusters %s: %w", clusterID, err)
		}
		r.CreatedAt = parseTime(createdAt)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

package store

import "fmt"

// RecordClusteringMetric appends one clustering-quality measurement.
// Category and notes may be nil.
func (s *Store) RecordClusteringMetric(metricType string, value float64, category *string, sampleSize int, notes *string) error {
	_, err := s.conn.Exec(`
		INSERT INTO clustering_metrics (metric_type, value, category, sample_size, notes, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		metricType, value, category, sampleSize, notes, fmtTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record metric %s: %w", metricType, err)
	}
	return nil
}

// RecordLabelQuality appends one label-quality measurement for an article.
func (s *Store) RecordLabelQuality(articleID, labelType, originalLabel string, correctedLabel *string, accuracyScore *float64, feedbackSource *string) error {
	_, err := s.conn.Exec(`
		INSERT INTO label_quality (article_id, label_type, original_label, corrected_label, accuracy_score, feedback_source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		articleID, labelType, originalLabel, correctedLabel, accuracyScore, feedbackSource, fmtTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record label quality %s: %w", articleID, err)
	}
	return nil
}

// GetClusteringQualitySummary returns the per-type average value and
// sample count over the window.
func (s *Store) GetClusteringQualitySummary(hours float64) (map[string]QualitySummary, error) {
	rows, err := s.conn.Query(`
		SELECT metric_type, AVG(value), COUNT(*)
		FROM clustering_metrics
		WHERE calculated_at >= ?
		GROUP BY metric_type`, s.cutoff(hours))
	if err != nil {
		return nil, fmt.Errorf("quality summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]QualitySummary)
	for rows.Next() {
		var metricType string
		var q QualitySummary
		if err := rows.Scan(&metricType, &q.Average, &q.SampleCount); err != nil {
			return nil, fmt.Errorf("quality summary: %w", err)
		}
		summary[metricType] = q
	}
	return summary, rows.Err()
}

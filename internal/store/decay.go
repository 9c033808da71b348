package store

import (
	"database/sql"
	"fmt"
)

// GetDecayConfig returns the stored decay config for a category, or nil
// if none has been persisted yet.
func (s *Store) GetDecayConfig(category string) (*HeatDecayConfig, error) {
	var cfg HeatDecayConfig
	var updatedAt string
	err := s.conn.QueryRow(`
		SELECT category, decay_constant, activity_boost_hours, spike_multiplier,
			base_half_life_hours, description, updated_at
		FROM decay_configs WHERE category = ?`, category,
	).Scan(&cfg.Category, &cfg.DecayConstant, &cfg.ActivityBoostHours,
		&cfg.SpikeMultiplier, &cfg.BaseHalfLifeHours, &cfg.Description, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decay config %s: %w", category, err)
	}
	cfg.UpdatedAt = parseTime(updatedAt)
	return &cfg, nil
}

// SaveDecayConfig upserts a decay config row.
func (s *Store) SaveDecayConfig(cfg *HeatDecayConfig) error {
	_, err := s.conn.Exec(`
		INSERT INTO decay_configs (category, decay_constant, activity_boost_hours,
			spike_multiplier, base_half_life_hours, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			decay_constant = excluded.decay_constant,
			activity_boost_hours = excluded.activity_boost_hours,
			spike_multiplier = excluded.spike_multiplier,
			base_half_life_hours = excluded.base_half_life_hours,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		cfg.Category, cfg.DecayConstant, cfg.ActivityBoostHours,
		cfg.SpikeMultiplier, cfg.BaseHalfLifeHours, cfg.Description, fmtTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("save decay config %s: %w", cfg.Category, err)
	}
	return nil
}

package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS clusters (
    id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    topic_key TEXT NOT NULL,
    summary TEXT DEFAULT '',
    category TEXT DEFAULT '',
    keywords TEXT,
    heat_score REAL DEFAULT 0,
    article_count INTEGER DEFAULT 0,
    unique_title_count INTEGER DEFAULT 0,
    trend_direction TEXT DEFAULT 'NEUTRAL',
    urgency TEXT DEFAULT 'LOW',
    sub_event_type TEXT,
    heat_velocity REAL DEFAULT 0,
    acceleration REAL DEFAULT 0,
    predicted_heat REAL DEFAULT 0,
    prediction_confidence REAL DEFAULT 0,
    is_cross_category INTEGER DEFAULT 0,
    parent_cluster_id TEXT,
    entity_heat_score REAL DEFAULT 0,
    source_authority_score REAL DEFAULT 1.0,
    composite_rank_score REAL DEFAULT 0,
    is_anomaly INTEGER DEFAULT 0,
    anomaly_type TEXT,
    anomaly_score REAL DEFAULT 0,
    lifecycle_stage TEXT DEFAULT 'EMERGING',
    first_seen TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT DEFAULT '',
    sentiment TEXT DEFAULT 'NEUTRAL',
    importance TEXT DEFAULT 'MEDIUM',
    published_at TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_articles (
    cluster_id TEXT NOT NULL,
    article_id TEXT NOT NULL,
    added_at TEXT NOT NULL,
    trend_direction TEXT DEFAULT 'NEUTRAL',
    PRIMARY KEY (cluster_id, article_id)
);

CREATE TABLE IF NOT EXISTS title_fingerprints (
    cluster_id TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    count INTEGER DEFAULT 1,
    first_seen TEXT NOT NULL,
    PRIMARY KEY (cluster_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS heat_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id TEXT NOT NULL,
    heat_score REAL NOT NULL,
    article_count INTEGER DEFAULT 0,
    unique_title_count INTEGER DEFAULT 0,
    velocity REAL DEFAULT 0,
    ts TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    normalized_name TEXT UNIQUE NOT NULL,
    first_seen TEXT NOT NULL,
    last_seen TEXT NOT NULL,
    occurrence_count INTEGER DEFAULT 1
);

CREATE TABLE IF NOT EXISTS entity_articles (
    entity_id INTEGER NOT NULL,
    article_id TEXT NOT NULL,
    confidence REAL DEFAULT 1.0,
    linked_at TEXT NOT NULL,
    PRIMARY KEY (entity_id, article_id)
);

CREATE TABLE IF NOT EXISTS entity_clusters (
    entity_id INTEGER NOT NULL,
    cluster_id TEXT NOT NULL,
    article_count INTEGER DEFAULT 0,
    heat_contribution REAL DEFAULT 0,
    first_linked TEXT NOT NULL,
    last_linked TEXT NOT NULL,
    PRIMARY KEY (entity_id, cluster_id)
);

CREATE TABLE IF NOT EXISTS cluster_crossrefs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_cluster_id TEXT NOT NULL,
    target_cluster_id TEXT NOT NULL,
    reference_type TEXT NOT NULL,
    confidence REAL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_hierarchy (
    parent_cluster_id TEXT NOT NULL,
    child_cluster_id TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (parent_cluster_id, child_cluster_id)
);

CREATE TABLE IF NOT EXISTS decay_configs (
    category TEXT PRIMARY KEY,
    decay_constant REAL NOT NULL,
    activity_boost_hours REAL NOT NULL,
    spike_multiplier REAL NOT NULL,
    base_half_life_hours REAL NOT NULL,
    description TEXT DEFAULT '',
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clustering_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    metric_type TEXT NOT NULL,
    value REAL NOT NULL,
    category TEXT,
    sample_size INTEGER DEFAULT 0,
    notes TEXT,
    calculated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS label_quality (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id TEXT NOT NULL,
    label_type TEXT NOT NULL,
    original_label TEXT NOT NULL,
    corrected_label TEXT,
    accuracy_score REAL,
    feedback_source TEXT,
    recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clusters_heat ON clusters(heat_score DESC);
CREATE INDEX IF NOT EXISTS idx_clusters_updated ON clusters(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_clusters_category ON clusters(category);
CREATE INDEX IF NOT EXISTS idx_clusters_topic_key ON clusters(topic_key);
CREATE INDEX IF NOT EXISTS idx_heat_history_cluster ON heat_history(cluster_id, id);
CREATE INDEX IF NOT EXISTS idx_entity_clusters_cluster ON entity_clusters(cluster_id);
CREATE INDEX IF NOT EXISTS idx_crossrefs_source ON cluster_crossrefs(source_cluster_id);
CREATE INDEX IF NOT EXISTS idx_crossrefs_target ON cluster_crossrefs(target_cluster_id);
CREATE INDEX IF NOT EXISTS idx_metrics_type ON clustering_metrics(metric_type, calculated_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

package store

import "time"

// Trend directions.
const (
	TrendUp      = "UP"
	TrendDown    = "DOWN"
	TrendNeutral = "NEUTRAL"
)

// Urgency levels.
const (
	UrgencyCritical = "CRITICAL"
	UrgencyHigh     = "HIGH"
	UrgencyMedium   = "MEDIUM"
	UrgencyLow      = "LOW"
)

// Lifecycle stages of a cluster's attention curve.
const (
	StageEmerging  = "EMERGING"
	StageSustained = "SUSTAINED"
	StageDecaying  = "DECAYING"
	StageDead      = "DEAD"
)

// Entity types.
const (
	EntityPerson         = "PERSON"
	EntityOrganization   = "ORGANIZATION"
	EntityLocation       = "LOCATION"
	EntityToken          = "TOKEN"
	EntityProtocol       = "PROTOCOL"
	EntityCountry        = "COUNTRY"
	EntityGovernmentBody = "GOVERNMENT_BODY"
)

// Cross-reference types.
const (
	RefSoft    = "SOFT_REF"
	RefRelated = "RELATED"
	RefPartOf  = "PART_OF"
	RefCauses  = "CAUSES"
)

// Hierarchy relationship types.
const (
	RelParent     = "PARENT"
	RelChild      = "CHILD"
	RelMergedInto = "MERGED_INTO"
	RelSplitFrom  = "SPLIT_FROM"
)

// Anomaly types.
const (
	AnomalySuddenSpike = "SUDDEN_SPIKE"
	AnomalySuddenDrop  = "SUDDEN_DROP"
	AnomalyVelocity    = "VELOCITY_ANOMALY"
)

// Categories with dedicated decay defaults. Any other category falls back
// to the generic defaults.
const (
	CategoryCrypto      = "CRYPTO"
	CategoryStocks      = "STOCKS"
	CategoryEconomics   = "ECONOMICS"
	CategoryGeopolitics = "GEOPOLITICS"
	CategorySports      = "SPORTS"
)

// Sentiment and importance labels carried on inbound articles.
const (
	SentimentNeutral = "NEUTRAL"

	ImportanceCritical = "CRITICAL"
	ImportanceHigh     = "HIGH"
	ImportanceMedium   = "MEDIUM"
	ImportanceLow      = "LOW"
)

// StoryCluster is a persistent grouping of articles covering one
// news event or topic, together with its derived heat and ranking state.
type StoryCluster struct {
	ID                   string
	Topic                string
	TopicKey             string
	Summary              string
	Category             string
	Keywords             []string
	HeatScore            float64
	ArticleCount         int
	UniqueTitleCount     int
	TrendDirection       string
	Urgency              string
	SubEventType         *string
	HeatVelocity         float64
	Acceleration         float64
	PredictedHeat        float64
	PredictionConfidence float64
	IsCrossCategory      bool
	ParentClusterID      *string
	EntityHeatScore      float64
	SourceAuthorityScore float64
	CompositeRankScore   float64
	IsAnomaly            bool
	AnomalyType          *string
	AnomalyScore         float64
	LifecycleStage       string
	FirstSeen            time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Article is the normalized inbound article record the engine consumes.
type Article struct {
	ID          string
	Title       string
	Category    string
	Sentiment   string
	Importance  string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// ClusterDetails is a cluster with its linked articles.
type ClusterDetails struct {
	Cluster  StoryCluster
	Articles []Article
}

// AttachResult reports what AddArticleToCluster did.
type AttachResult struct {
	WasNew            bool
	DuplicateIndex    int
	PenaltyMultiplier float64
}

// MergeResult reports what MergeClusters did.
type MergeResult struct {
	Moved   int
	Deleted bool
}

// HeatHistoryPoint is one immutable heat snapshot for a cluster.
type HeatHistoryPoint struct {
	ID               int64
	ClusterID        string
	HeatScore        float64
	ArticleCount     int
	UniqueTitleCount int
	Velocity         float64
	Timestamp        time.Time
}

// NamedEntity is an entity extracted from article text, deduplicated
// by normalized name.
type NamedEntity struct {
	ID              int64
	EntityName      string
	EntityType      string
	NormalizedName  string
	FirstSeen       time.Time
	LastSeen        time.Time
	OccurrenceCount int
}

// EntityHeat is one row of the trending-entities ranking.
type EntityHeat struct {
	EntityID          int64
	EntityName        string
	EntityType        string
	TotalHeat         float64
	ClusterCount      int
	TrendingDirection string
}

// ClusterCrossRef is a soft reference between two clusters.
type ClusterCrossRef struct {
	ID              int64
	SourceClusterID string
	TargetClusterID string
	ReferenceType   string
	Confidence      float64
	CreatedAt       time.Time
}

// HeatDecayConfig holds the per-category decay parameters.
type HeatDecayConfig struct {
	Category           string
	DecayConstant      float64
	ActivityBoostHours float64
	SpikeMultiplier    float64
	BaseHalfLifeHours  float64
	Description        string
	UpdatedAt          time.Time
}

// QualitySummary is the rolling average for one clustering metric type.
type QualitySummary struct {
	Average     float64
	SampleCount int
}

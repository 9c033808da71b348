// Package rank blends a cluster's signals into a single composite score
// and flags statistically anomalous heat behavior.
package rank

import (
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

// Reference maxima the raw signals are normalized against. A cluster at
// or beyond a maximum saturates that signal at 1.
const (
	maxHeatReference       = 1000.0
	maxArticleReference    = 50.0
	maxVelocityReference   = 100.0
	maxEntityHeatReference = 100.0
)

// Signal weights. They sum to 1.0 so the composite stays in [0,1].
const (
	weightHeat      = 0.30
	weightArticles  = 0.25
	weightVelocity  = 0.15
	weightEntity    = 0.15
	weightAuthority = 0.15
)

// CompositeRanking is the full scoring breakdown for one cluster.
type CompositeRanking struct {
	ClusterID         string    `json:"clusterId"`
	HeatScore         float64   `json:"heatScore"`
	ArticleCountScore float64   `json:"articleCountScore"`
	VelocityScore     float64   `json:"velocityScore"`
	EntityHeatScore   float64   `json:"entityHeatScore"`
	AuthorityScore    float64   `json:"authorityScore"`
	CompositeScore    float64   `json:"compositeScore"`
	ComputedAt        time.Time `json:"computedAt"`
}

// Ranker computes composite ranks and detects heat anomalies.
type Ranker struct {
	store *store.Store
	now   func() time.Time
}

// NewRanker creates a Ranker over the store.
func NewRanker(s *store.Store) *Ranker {
	return &Ranker{store: s, now: time.Now}
}

// SetClock overrides the ranker clock for tests.
func (r *Ranker) SetClock(now func() time.Time) {
	r.now = now
}

func normalize(value, max float64) float64 {
	if value < 0 {
		value = -value
	}
	n := value / max
	if n > 1 {
		return 1
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CompositeRank computes the multi-factor weighted score for a cluster,
// persists it, and returns the breakdown. A missing cluster yields nil.
func (r *Ranker) CompositeRank(clusterID string) (*CompositeRanking, error) {
	c, err := r.store.GetClusterByID(clusterID)
	if err != nil || c == nil {
		return nil, err
	}

	authority := clamp01(c.SourceAuthorityScore)

	ranking := &CompositeRanking{
		ClusterID:         clusterID,
		HeatScore:         normalize(c.HeatScore, maxHeatReference),
		ArticleCountScore: normalize(float64(c.ArticleCount), maxArticleReference),
		VelocityScore:     normalize(c.HeatVelocity, maxVelocityReference),
		EntityHeatScore:   normalize(c.EntityHeatScore, maxEntityHeatReference),
		AuthorityScore:    authority,
		ComputedAt:        r.now(),
	}
	ranking.CompositeScore = weightHeat*ranking.HeatScore +
		weightArticles*ranking.ArticleCountScore +
		weightVelocity*ranking.VelocityScore +
		weightEntity*ranking.EntityHeatScore +
		weightAuthority*ranking.AuthorityScore

	if err := r.store.SetCompositeRank(clusterID, ranking.CompositeScore); err != nil {
		return nil, err
	}
	return ranking, nil
}

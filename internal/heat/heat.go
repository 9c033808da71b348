// Package heat computes an article's heat contribution to its cluster.
// The function is pure with respect to its inputs so callers (and tests)
// control the clock.
package heat

import (
	"math"
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

// DefaultBaseHeat is the base heat used when the caller does not supply one.
const DefaultBaseHeat = 10.0

const (
	sentimentBoost = 1.1
	activityBoost  = 1.3
)

// Score returns the heat delta an article contributes given the category's
// decay parameters and the cluster's recent activity. The pipeline is:
// importance multiplier, sentiment boost, exponential time decay, then an
// activity boost when the cluster was touched recently.
func Score(article *store.Article, clusterLastUpdated time.Time, baseHeat float64, cfg *store.HeatDecayConfig, now time.Time) float64 {
	if baseHeat <= 0 {
		baseHeat = DefaultBaseHeat
	}

	h := baseHeat * importanceMultiplier(article.Importance, cfg.SpikeMultiplier)

	if article.Sentiment != "" && article.Sentiment != store.SentimentNeutral {
		h *= sentimentBoost
	}

	if !article.PublishedAt.IsZero() {
		hoursSince := now.Sub(article.PublishedAt).Hours()
		if hoursSince > 0 {
			h *= math.Exp(-cfg.DecayConstant * hoursSince)
		}
	}

	if !clusterLastUpdated.IsZero() {
		hoursSinceActivity := now.Sub(clusterLastUpdated).Hours()
		if hoursSinceActivity >= 0 && hoursSinceActivity < cfg.ActivityBoostHours {
			h *= activityBoost
		}
	}

	return h
}

func importanceMultiplier(importance string, spikeMultiplier float64) float64 {
	switch importance {
	case store.ImportanceCritical:
		return spikeMultiplier * 3
	case store.ImportanceHigh:
		return 2
	case store.ImportanceLow:
		return 1
	default:
		// MEDIUM, and anything unlabeled, reads as MEDIUM.
		return 1.5
	}
}

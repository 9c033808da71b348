// Package report assembles a markdown heat report from the current
// cluster, entity and anomaly state.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

const (
	topClusterLimit     = 15
	trendingEntityLimit = 10
	anomalyLimit        = 10
)

// Builder composes heat reports from the store.
type Builder struct {
	store *store.Store
	now   func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(s *store.Store) *Builder {
	return &Builder{store: s, now: time.Now}
}

// SetClock overrides the builder clock for tests.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// BuildMarkdown renders the heat report for clusters updated within the
// window.
func (b *Builder) BuildMarkdown(sinceHours float64) (string, error) {
	clusters, err := b.store.GetHotClusters(topClusterLimit, sinceHours, "")
	if err != nil {
		return "", err
	}
	entities, err := b.store.GetTrendingEntities(trendingEntityLimit, sinceHours)
	if err != nil {
		return "", err
	}
	anomalies, err := b.store.AnomalousClusters(anomalyLimit)
	if err != nil {
		return "", err
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# Heat Report\n\n_%s — last %.0f hours_\n\n", b.now().UTC().Format("2006-01-02 15:04 UTC"), sinceHours)

	md.WriteString("## Hottest Stories\n\n")
	if len(clusters) == 0 {
		md.WriteString("No clusters updated in the window.\n\n")
	} else {
		for i, c := range clusters {
			fmt.Fprintf(&md, "%d. **%s** — heat %.1f, %d articles, %s, %s",
				i+1, c.Topic, c.HeatScore, c.ArticleCount, c.LifecycleStage, c.TrendDirection)
			if c.Category != "" {
				fmt.Fprintf(&md, " _(%s)_", c.Category)
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	md.WriteString("## Trending Entities\n\n")
	if len(entities) == 0 {
		md.WriteString("No trending entities.\n\n")
	} else {
		for _, e := range entities {
			fmt.Fprintf(&md, "- **%s** (%s) — heat %.1f across %d clusters, %s\n",
				e.EntityName, e.EntityType, e.TotalHeat, e.ClusterCount, e.TrendingDirection)
		}
		md.WriteString("\n")
	}

	md.WriteString("## Anomalies\n\n")
	if len(anomalies) == 0 {
		md.WriteString("No anomalous heat behavior detected.\n")
	} else {
		for _, c := range anomalies {
			anomalyType := ""
			if c.AnomalyType != nil {
				anomalyType = *c.AnomalyType
			}
			fmt.Fprintf(&md, "- **%s** — %s (score %.2f), heat %.1f\n",
				c.Topic, anomalyType, c.AnomalyScore, c.HeatScore)
		}
	}

	return md.String(), nil
}

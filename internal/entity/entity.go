// Package entity links named entities to articles and clusters and
// maintains the cross-reference graph between clusters.
package entity

import (
	"fmt"
	"log"

	"github.com/storyheat/storyheat/internal/store"
)

// DefaultLinkConfidence is used when a caller supplies no confidence.
const DefaultLinkConfidence = 1.0

// Mention is one named entity observed in an article.
type Mention struct {
	Name string
	Type string
}

// Linker registers entities and attributes cluster heat to them.
type Linker struct {
	store *store.Store
}

// NewLinker creates a Linker over the store.
func NewLinker(s *store.Store) *Linker {
	return &Linker{store: s}
}

// FindOrCreate resolves an entity by normalized name, creating it on first
// observation and bumping its occurrence count otherwise.
func (l *Linker) FindOrCreate(name, entityType string) (int64, error) {
	return l.store.FindOrCreateEntity(name, entityType)
}

// LinkToArticle idempotently records that the entity appears in the article.
func (l *Linker) LinkToArticle(entityID int64, articleID string, confidence float64) error {
	if confidence <= 0 {
		confidence = DefaultLinkConfidence
	}
	return l.store.LinkEntityToArticle(entityID, articleID, confidence)
}

// AttributeHeat accumulates part of a cluster's heat onto an entity.
func (l *Linker) AttributeHeat(entityID int64, clusterID string, heatContribution float64) error {
	return l.store.UpdateEntityClusterHeat(entityID, clusterID, heatContribution)
}

// LinkArticleEntities registers every mention from one article, splits the
// article's heat delta evenly across them, and rolls the attributed heat
// up onto the cluster's entity heat score. Individual mention failures are
// logged and skipped so one bad mention never loses the rest.
func (l *Linker) LinkArticleEntities(articleID, clusterID string, mentions []Mention, heatDelta float64) error {
	if len(mentions) == 0 {
		return nil
	}
	share := heatDelta / float64(len(mentions))

	attributed := 0.0
	for _, m := range mentions {
		id, err := l.store.FindOrCreateEntity(m.Name, m.Type)
		if err != nil {
			log.Printf("entity %q: %v", m.Name, err)
			continue
		}
		if err := l.store.LinkEntityToArticle(id, articleID, DefaultLinkConfidence); err != nil {
			log.Printf("entity %q article %s: %v", m.Name, articleID, err)
			continue
		}
		if err := l.store.UpdateEntityClusterHeat(id, clusterID, share); err != nil {
			log.Printf("entity %q cluster %s: %v", m.Name, clusterID, err)
			continue
		}
		attributed += share
	}

	if attributed > 0 {
		if err := l.store.AddClusterEntityHeat(clusterID, attributed); err != nil {
			return fmt.Errorf("rolling up entity heat for %s: %w", clusterID, err)
		}
	}
	return nil
}

// Trending ranks entities by heat accrued across recently updated clusters.
func (l *Linker) Trending(limit int, hours float64) ([]store.EntityHeat, error) {
	return l.store.GetTrendingEntities(limit, hours)
}

// CrossRef links two clusters with a soft reference and marks both sides
// cross-category. Self-references are rejected with ErrSelfReference.
func (l *Linker) CrossRef(sourceID, targetID, referenceType string, confidence float64) error {
	return l.store.CreateCrossRef(sourceID, targetID, referenceType, confidence)
}

// Hierarchy records a parent/child edge and repoints the child's parent.
func (l *Linker) Hierarchy(parentID, childID, relationshipType string) error {
	return l.store.CreateHierarchy(parentID, childID, relationshipType)
}

// Related returns cross-references touching the cluster on either side.
func (l *Linker) Related(clusterID string, limit int) ([]store.ClusterCrossRef, error) {
	return l.store.GetRelatedClusters(clusterID, limit)
}

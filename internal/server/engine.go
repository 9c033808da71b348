package server

import (
	"github.com/storyheat/storyheat/internal/entity"
	"github.com/storyheat/storyheat/internal/rank"
	"github.com/storyheat/storyheat/internal/report"
	"github.com/storyheat/storyheat/internal/store"
	"github.com/storyheat/storyheat/internal/trend"
)

// StoreEngine implements Engine over the store and its services.
type StoreEngine struct {
	store    *store.Store
	analyzer *trend.Analyzer
	ranker   *rank.Ranker
	linker   *entity.Linker
	reporter *report.Builder
}

// NewStoreEngine wires the engine services over one store.
func NewStoreEngine(s *store.Store) *StoreEngine {
	return &StoreEngine{
		store:    s,
		analyzer: trend.NewAnalyzer(s),
		ranker:   rank.NewRanker(s),
		linker:   entity.NewLinker(s),
		reporter: report.NewBuilder(s),
	}
}

func (e *StoreEngine) HotClusters(limit int, sinceHours float64, category string) ([]store.StoryCluster, error) {
	return e.store.GetHotClusters(limit, sinceHours, category)
}

func (e *StoreEngine) ClusterDetails(id string) (*store.ClusterDetails, error) {
	return e.store.GetClusterDetails(id)
}

func (e *StoreEngine) SampleTitles(clusterID string, limit int) ([]string, error) {
	return e.store.GetClusterSampleTitles(clusterID, limit)
}

func (e *StoreEngine) RelatedClusters(clusterID string, limit int) ([]store.ClusterCrossRef, error) {
	return e.linker.Related(clusterID, limit)
}

func (e *StoreEngine) TrendingEntities(limit int, hours float64) ([]store.EntityHeat, error) {
	return e.linker.Trending(limit, hours)
}

func (e *StoreEngine) AnalyzeTrend(clusterID string, windowHours float64) (trend.Analysis, error) {
	return e.analyzer.Analyze(clusterID, windowHours)
}

func (e *StoreEngine) CompositeRank(clusterID string) (*rank.CompositeRanking, error) {
	return e.ranker.CompositeRank(clusterID)
}

func (e *StoreEngine) DetectAnomalies(clusterID string) (rank.AnomalyDetection, error) {
	return e.ranker.DetectAnomalies(clusterID)
}

func (e *StoreEngine) QualitySummary(hours float64) (map[string]store.QualitySummary, error) {
	return e.store.GetClusteringQualitySummary(hours)
}

func (e *StoreEngine) ReportMarkdown(sinceHours float64) (string, error) {
	return e.reporter.BuildMarkdown(sinceHours)
}

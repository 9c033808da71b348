package server

import (
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

type ClusterResponse struct {
	ID                   string   `json:"id"`
	Topic                string   `json:"topic"`
	Summary              string   `json:"summary,omitempty"`
	Category             string   `json:"category"`
	Keywords             []string `json:"keywords,omitempty"`
	HeatScore            float64  `json:"heatScore"`
	ArticleCount         int      `json:"articleCount"`
	UniqueTitleCount     int      `json:"uniqueTitleCount"`
	TrendDirection       string   `json:"trendDirection"`
	Urgency              string   `json:"urgency"`
	HeatVelocity         float64  `json:"heatVelocity"`
	Acceleration         float64  `json:"acceleration"`
	PredictedHeat        float64  `json:"predictedHeat"`
	PredictionConfidence float64  `json:"predictionConfidence"`
	IsCrossCategory      bool     `json:"isCrossCategory"`
	ParentClusterID      *string  `json:"parentClusterId,omitempty"`
	EntityHeatScore      float64  `json:"entityHeatScore"`
	CompositeRankScore   float64  `json:"compositeRankScore"`
	IsAnomaly            bool     `json:"isAnomaly"`
	AnomalyType          *string  `json:"anomalyType,omitempty"`
	AnomalyScore         float64  `json:"anomalyScore"`
	LifecycleStage       string   `json:"lifecycleStage"`
	FirstSeen            string   `json:"firstSeen"`
	UpdatedAt            string   `json:"updatedAt"`
}

type ArticleResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Sentiment   string `json:"sentiment"`
	Importance  string `json:"importance"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

type ClusterDetailsResponse struct {
	Cluster  ClusterResponse   `json:"cluster"`
	Articles []ArticleResponse `json:"articles"`
}

type CrossRefResponse struct {
	SourceClusterID string  `json:"sourceClusterId"`
	TargetClusterID string  `json:"targetClusterId"`
	ReferenceType   string  `json:"referenceType"`
	Confidence      float64 `json:"confidence"`
}

type EntityHeatResponse struct {
	EntityID          int64   `json:"entityId"`
	EntityName        string  `json:"entityName"`
	EntityType        string  `json:"entityType"`
	TotalHeat         float64 `json:"totalHeat"`
	ClusterCount      int     `json:"clusterCount"`
	TrendingDirection string  `json:"trendingDirection"`
}

type QualitySummaryResponse struct {
	Average     float64 `json:"average"`
	SampleCount int     `json:"sampleCount"`
}

func toClusterResponse(c store.StoryCluster) ClusterResponse {
	return ClusterResponse{
		ID:                   c.ID,
		Topic:                c.Topic,
		Summary:              c.Summary,
		Category:             c.Category,
		Keywords:             c.Keywords,
		HeatScore:            c.HeatScore,
		ArticleCount:         c.ArticleCount,
		UniqueTitleCount:     c.UniqueTitleCount,
		TrendDirection:       c.TrendDirection,
		Urgency:              c.Urgency,
		HeatVelocity:         c.HeatVelocity,
		Acceleration:         c.Acceleration,
		PredictedHeat:        c.PredictedHeat,
		PredictionConfidence: c.PredictionConfidence,
		IsCrossCategory:      c.IsCrossCategory,
		ParentClusterID:      c.ParentClusterID,
		EntityHeatScore:      c.EntityHeatScore,
		CompositeRankScore:   c.CompositeRankScore,
		IsAnomaly:            c.IsAnomaly,
		AnomalyType:          c.AnomalyType,
		AnomalyScore:         c.AnomalyScore,
		LifecycleStage:       c.LifecycleStage,
		FirstSeen:            c.FirstSeen.Format(time.RFC3339),
		UpdatedAt:            c.UpdatedAt.Format(time.RFC3339),
	}
}

func toArticleResponse(a store.Article) ArticleResponse {
	resp := ArticleResponse{
		ID:         a.ID,
		Title:      a.Title,
		Category:   a.Category,
		Sentiment:  a.Sentiment,
		Importance: a.Importance,
	}
	if !a.PublishedAt.IsZero() {
		resp.PublishedAt = a.PublishedAt.Format(time.RFC3339)
	}
	return resp
}

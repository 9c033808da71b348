// Package server exposes the engine's outbound query surface as a JSON
// API, plus one HTML report page. Read paths degrade to safe defaults:
// a store failure yields an empty or neutral body, never a hang.
package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"github.com/storyheat/storyheat/internal/rank"
	"github.com/storyheat/storyheat/internal/store"
	"github.com/storyheat/storyheat/internal/trend"
)

// Engine is the query surface the handlers depend on.
type Engine interface {
	HotClusters(limit int, sinceHours float64, category string) ([]store.StoryCluster, error)
	ClusterDetails(id string) (*store.ClusterDetails, error)
	SampleTitles(clusterID string, limit int) ([]string, error)
	RelatedClusters(clusterID string, limit int) ([]store.ClusterCrossRef, error)
	TrendingEntities(limit int, hours float64) ([]store.EntityHeat, error)
	AnalyzeTrend(clusterID string, windowHours float64) (trend.Analysis, error)
	CompositeRank(clusterID string) (*rank.CompositeRanking, error)
	DetectAnomalies(clusterID string) (rank.AnomalyDetection, error)
	QualitySummary(hours float64) (map[string]store.QualitySummary, error)
	ReportMarkdown(sinceHours float64) (string, error)
}

var md = goldmark.New()

// Handler serves the engine query API.
type Handler struct {
	engine Engine
}

// NewHandler creates a Handler.
func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// Router builds the gin engine with all routes registered.
func Router(engine Engine, allowedOrigins []string) *gin.Engine {
	h := NewHandler(engine)

	r := gin.Default()
	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	r.GET("/clusters/hot", h.GetHotClusters)
	r.GET("/clusters/:id", h.GetClusterDetails)
	r.GET("/clusters/:id/titles", h.GetSampleTitles)
	r.GET("/clusters/:id/related", h.GetRelatedClusters)
	r.GET("/clusters/:id/trend", h.GetTrend)
	r.GET("/clusters/:id/rank", h.GetCompositeRank)
	r.GET("/clusters/:id/anomalies", h.GetAnomalies)
	r.GET("/entities/trending", h.GetTrendingEntities)
	r.GET("/metrics/quality", h.GetQualitySummary)
	r.GET("/report", h.GetReport)
	r.GET("/health", h.GetHealth)
	return r
}

func queryInt(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(c.DefaultQuery(key, ""), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (h *Handler) GetHotClusters(c *gin.Context) {
	limit := queryInt(c, "limit", 20, 100)
	sinceHours := queryFloat(c, "since_hours", 24)
	category := c.Query("category")

	clusters, err := h.engine.HotClusters(limit, sinceHours, category)
	if err != nil {
		slog.Error("hot clusters query failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"clusters": []ClusterResponse{}})
		return
	}

	resp := make([]ClusterResponse, 0, len(clusters))
	for _, cl := range clusters {
		resp = append(resp, toClusterResponse(cl))
	}
	c.JSON(http.StatusOK, gin.H{"clusters": resp})
}

func (h *Handler) GetClusterDetails(c *gin.Context) {
	id := c.Param("id")

	details, err := h.engine.ClusterDetails(id)
	if err != nil {
		slog.Error("cluster details query failed", "cluster_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cluster not found"})
		return
	}

	resp := ClusterDetailsResponse{
		Cluster:  toClusterResponse(details.Cluster),
		Articles: make([]ArticleResponse, 0, len(details.Articles)),
	}
	for _, a := range details.Articles {
		resp.Articles = append(resp.Articles, toArticleResponse(a))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetSampleTitles(c *gin.Context) {
	id := c.Param("id")
	limit := queryInt(c, "limit", 10, 20)

	titles, err := h.engine.SampleTitles(id, limit)
	if err != nil {
		slog.Error("sample titles query failed", "cluster_id", id, "error", err)
		titles = nil
	}
	if titles == nil {
		titles = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"titles": titles})
}

func (h *Handler) GetRelatedClusters(c *gin.Context) {
	id := c.Param("id")
	limit := queryInt(c, "limit", 10, 50)

	refs, err := h.engine.RelatedClusters(id, limit)
	if err != nil {
		slog.Error("related clusters query failed", "cluster_id", id, "error", err)
		refs = nil
	}

	resp := make([]CrossRefResponse, 0, len(refs))
	for _, r := range refs {
		resp = append(resp, CrossRefResponse{
			SourceClusterID: r.SourceClusterID,
			TargetClusterID: r.TargetClusterID,
			ReferenceType:   r.ReferenceType,
			Confidence:      r.Confidence,
		})
	}
	c.JSON(http.StatusOK, gin.H{"related": resp})
}

func (h *Handler) GetTrend(c *gin.Context) {
	id := c.Param("id")
	window := queryFloat(c, "window_hours", trend.DefaultWindowHours)

	analysis, err := h.engine.AnalyzeTrend(id, window)
	if err != nil {
		slog.Error("trend analysis failed", "cluster_id", id, "error", err)
	}
	// On failure the analysis is already the neutral zero-confidence result.
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) GetCompositeRank(c *gin.Context) {
	id := c.Param("id")

	ranking, err := h.engine.CompositeRank(id)
	if err != nil {
		slog.Error("composite rank failed", "cluster_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ranking == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cluster not found"})
		return
	}
	c.JSON(http.StatusOK, ranking)
}

func (h *Handler) GetAnomalies(c *gin.Context) {
	id := c.Param("id")

	detection, err := h.engine.DetectAnomalies(id)
	if err != nil {
		slog.Error("anomaly detection failed", "cluster_id", id, "error", err)
	}
	c.JSON(http.StatusOK, detection)
}

func (h *Handler) GetTrendingEntities(c *gin.Context) {
	limit := queryInt(c, "limit", 20, 100)
	hours := queryFloat(c, "hours", 24)

	entities, err := h.engine.TrendingEntities(limit, hours)
	if err != nil {
		slog.Error("trending entities query failed", "error", err)
		entities = nil
	}

	resp := make([]EntityHeatResponse, 0, len(entities))
	for _, e := range entities {
		resp = append(resp, EntityHeatResponse{
			EntityID:          e.EntityID,
			EntityName:        e.EntityName,
			EntityType:        e.EntityType,
			TotalHeat:         e.TotalHeat,
			ClusterCount:      e.ClusterCount,
			TrendingDirection: e.TrendingDirection,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entities": resp})
}

func (h *Handler) GetQualitySummary(c *gin.Context) {
	hours := queryFloat(c, "hours", 24)

	summary, err := h.engine.QualitySummary(hours)
	if err != nil {
		slog.Error("quality summary query failed", "error", err)
		summary = nil
	}

	resp := make(map[string]QualitySummaryResponse, len(summary))
	for metricType, q := range summary {
		resp[metricType] = QualitySummaryResponse{Average: q.Average, SampleCount: q.SampleCount}
	}
	c.JSON(http.StatusOK, gin.H{"metrics": resp})
}

func (h *Handler) GetReport(c *gin.Context) {
	sinceHours := queryFloat(c, "since_hours", 24)

	markdown, err := h.engine.ReportMarkdown(sinceHours)
	if err != nil {
		slog.Error("report build failed", "error", err)
		c.String(http.StatusInternalServerError, "report unavailable")
		return
	}

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		slog.Error("report render failed", "error", err)
		c.String(http.StatusInternalServerError, "report unavailable")
		return
	}

	page := fmt.Sprintf(reportPage, body.String())
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

const reportPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Heat Report</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
h1, h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.3rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

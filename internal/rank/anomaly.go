package rank

import (
	"math"
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

const (
	// anomalyHistoryPoints is how many recent snapshots feed the statistics.
	anomalyHistoryPoints = 24
	// minPointsForAnomaly is the data floor below which no anomaly is flagged.
	minPointsForAnomaly = 5

	zScoreThreshold = 3.0

	// velocityAnomalyStdDevFactor compares the velocity deviation against a
	// multiple of the heat standard deviation. Mixing the two statistics is
	// intentional, preserved observed behavior; kept behind a named constant
	// so the tradeoff stays visible. At zero heat standard deviation the
	// check is skipped even if a stored velocity is nonzero: the threshold
	// would be vacuous and the score (deviation / stdDev) unbounded.
	velocityAnomalyStdDevFactor = 2.0
)

// AnomalyDetection is the outcome of one anomaly check.
type AnomalyDetection struct {
	ClusterID    string    `json:"clusterId"`
	IsAnomaly    bool      `json:"isAnomaly"`
	AnomalyType  *string   `json:"anomalyType,omitempty"`
	AnomalyScore float64   `json:"anomalyScore"`
	DetectedAt   time.Time `json:"detectedAt"`
}

// DetectAnomalies runs z-score outlier detection over the cluster's recent
// heat history and persists the verdict on the cluster, clearing any prior
// anomaly flags when the cluster reads normal. Fewer than five points
// always reads normal.
func (r *Ranker) DetectAnomalies(clusterID string) (AnomalyDetection, error) {
	result := AnomalyDetection{ClusterID: clusterID, DetectedAt: r.now()}

	points, err := r.store.GetHeatHistory(clusterID, anomalyHistoryPoints)
	if err != nil {
		return result, err
	}
	if len(points) < minPointsForAnomaly {
		return result, r.store.SetAnomaly(clusterID, false, nil, 0)
	}

	// points are most-recent-first
	currentHeat := points[0].HeatScore
	currentVelocity := points[0].Velocity

	var heatSum, velocitySum float64
	for _, p := range points {
		heatSum += p.HeatScore
		velocitySum += p.Velocity
	}
	n := float64(len(points))
	heatMean := heatSum / n
	avgVelocity := velocitySum / n

	var variance float64
	for _, p := range points {
		d := p.HeatScore - heatMean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / n)

	zScore := 0.0
	if stdDev > 0 {
		zScore = (currentHeat - heatMean) / stdDev
	}

	var anomalyType string
	score := 0.0
	switch {
	case zScore > zScoreThreshold:
		anomalyType = store.AnomalySuddenSpike
		score = zScore
	case zScore < -zScoreThreshold:
		anomalyType = store.AnomalySuddenDrop
		score = -zScore
	}

	velocityDeviation := math.Abs(currentVelocity - avgVelocity)
	if stdDev > 0 && velocityDeviation > velocityAnomalyStdDevFactor*stdDev {
		if anomalyType == "" {
			anomalyType = store.AnomalyVelocity
		}
		if velocityScore := velocityDeviation / stdDev; velocityScore > score {
			score = velocityScore
		}
	}

	if anomalyType == "" {
		return result, r.store.SetAnomaly(clusterID, false, nil, 0)
	}

	result.IsAnomaly = true
	result.AnomalyType = &anomalyType
	result.AnomalyScore = score
	return result, r.store.SetAnomaly(clusterID, true, &anomalyType, score)
}

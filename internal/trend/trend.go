// Package trend derives velocity, acceleration and lifecycle stage from a
// cluster's heat history.
package trend

import (
	"fmt"

	"github.com/storyheat/storyheat/internal/store"
)

// DefaultWindowHours is the analysis window when the caller passes none.
const DefaultWindowHours = 6.0

const (
	minPointsForTrend = 3
	// Confidence saturates at a full day of hourly snapshots.
	fullConfidencePoints = 24

	accelerationThreshold = 0.5

	spikeAcceleration = 2.0
	spikeVelocity     = 10.0

	emergingHeatRatio  = 0.3
	sustainedHeatRatio = 0.7
	deadHeatFloor      = 5.0
)

// Trend classifications.
const (
	TrendAccelerating = "ACCELERATING"
	TrendDecelerating = "DECELERATING"
	TrendStable       = "STABLE"
)

// Predicted trajectories.
const (
	TrajectorySpike     = "SPIKE"
	TrajectorySustained = "SUSTAINED"
	TrajectoryDecay     = "DECAY"
)

// Analysis is the result of analyzing a cluster's heat trend.
type Analysis struct {
	ClusterID           string  `json:"clusterId"`
	CurrentHeat         float64 `json:"currentHeat"`
	Velocity            float64 `json:"velocity"`
	Acceleration        float64 `json:"acceleration"`
	Trend               string  `json:"trend"`
	PredictedTrajectory string  `json:"predictedTrajectory"`
	Confidence          float64 `json:"confidence"`
	LifecycleStage      string  `json:"lifecycleStage"`
}

// Analyzer reads heat history and writes derived trend fields back onto
// the cluster.
type Analyzer struct {
	store *store.Store
}

// NewAnalyzer creates an Analyzer over the store.
func NewAnalyzer(s *store.Store) *Analyzer {
	return &Analyzer{store: s}
}

// Record appends a heat snapshot for the cluster from its current state.
func (a *Analyzer) Record(clusterID string) error {
	c, err := a.store.GetClusterByID(clusterID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("record heat history: cluster %s not found", clusterID)
	}
	_, err = a.store.AppendHeatHistory(clusterID, c.HeatScore, c.ArticleCount, c.UniqueTitleCount)
	return err
}

// neutral is the zero-information result for clusters with too little
// history inside the window.
func neutral(clusterID string, currentHeat float64) Analysis {
	return Analysis{
		ClusterID:           clusterID,
		CurrentHeat:         currentHeat,
		Trend:               TrendStable,
		PredictedTrajectory: TrajectorySustained,
		Confidence:          0,
		LifecycleStage:      store.StageEmerging,
	}
}

// Analyze classifies the cluster's heat trajectory over the window and
// persists the derived fields onto the cluster row. Fewer than three
// points inside the window yields a neutral result with zero confidence.
func (a *Analyzer) Analyze(clusterID string, windowHours float64) (Analysis, error) {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}

	points, err := a.store.GetHeatHistorySince(clusterID, windowHours)
	if err != nil {
		return neutral(clusterID, 0), err
	}
	if len(points) < minPointsForTrend {
		currentHeat := 0.0
		if len(points) > 0 {
			currentHeat = points[len(points)-1].HeatScore
		}
		return neutral(clusterID, currentHeat), nil
	}

	last := points[len(points)-1]
	currentHeat := last.HeatScore
	recentVelocity := last.Velocity
	acceleration := (last.Velocity - points[0].Velocity) / float64(len(points))

	trend := TrendStable
	switch {
	case acceleration > accelerationThreshold:
		trend = TrendAccelerating
	case acceleration < -accelerationThreshold:
		trend = TrendDecelerating
	}

	trajectory := TrajectoryDecay
	switch {
	case acceleration > spikeAcceleration && recentVelocity > spikeVelocity:
		trajectory = TrajectorySpike
	case acceleration > 0 && recentVelocity > 0:
		trajectory = TrajectorySustained
	}

	confidence := float64(len(points)) / fullConfidencePoints
	if confidence > 1 {
		confidence = 1
	}

	maxHeat := 0.0
	for _, p := range points {
		if p.HeatScore > maxHeat {
			maxHeat = p.HeatScore
		}
	}
	heatRatio := 0.0
	if maxHeat > 0 {
		heatRatio = currentHeat / maxHeat
	}

	stage := store.StageSustained
	switch {
	case heatRatio < emergingHeatRatio && trend == TrendAccelerating:
		stage = store.StageEmerging
	case heatRatio >= sustainedHeatRatio && trend == TrendStable:
		stage = store.StageSustained
	case trend == TrendDecelerating:
		stage = store.StageDecaying
	case currentHeat < deadHeatFloor:
		stage = store.StageDead
	}

	// One-step kinematic extrapolation of the next snapshot's heat.
	predictedHeat := currentHeat + recentVelocity + acceleration/2
	if predictedHeat < 0 {
		predictedHeat = 0
	}

	direction := store.TrendNeutral
	switch {
	case recentVelocity > 0:
		direction = store.TrendUp
	case recentVelocity < 0:
		direction = store.TrendDown
	}

	if err := a.store.UpdateClusterTrend(clusterID, recentVelocity, acceleration, predictedHeat, confidence, stage, direction); err != nil {
		return neutral(clusterID, currentHeat), err
	}

	return Analysis{
		ClusterID:           clusterID,
		CurrentHeat:         currentHeat,
		Velocity:            recentVelocity,
		Acceleration:        acceleration,
		Trend:               trend,
		PredictedTrajectory: trajectory,
		Confidence:          confidence,
		LifecycleStage:      stage,
	}, nil
}

// Package sweep runs the periodic maintenance pass over recently updated
// clusters: heat snapshot, trend analysis, composite rank and anomaly
// detection.
package sweep

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/storyheat/storyheat/internal/rank"
	"github.com/storyheat/storyheat/internal/store"
	"github.com/storyheat/storyheat/internal/trend"
)

// Result summarizes one sweep pass.
type Result struct {
	Clusters  int
	Anomalies int
	Errors    int
}

// Sweeper drives the periodic analytics passes.
type Sweeper struct {
	store       *store.Store
	analyzer    *trend.Analyzer
	ranker      *rank.Ranker
	windowHours float64
	trendWindow float64

	cron *cron.Cron
}

// New creates a Sweeper.
func New(s *store.Store, windowHours, trendWindowHours float64) *Sweeper {
	if windowHours <= 0 {
		windowHours = 24
	}
	if trendWindowHours <= 0 {
		trendWindowHours = trend.DefaultWindowHours
	}
	return &Sweeper{
		store:       s,
		analyzer:    trend.NewAnalyzer(s),
		ranker:      rank.NewRanker(s),
		windowHours: windowHours,
		trendWindow: trendWindowHours,
	}
}

// RunOnce executes a single sweep pass. Per-cluster failures are logged
// and counted; the sweep always visits every cluster in the window.
func (sw *Sweeper) RunOnce() (*Result, error) {
	ids, err := sw.store.ClusterIDsUpdatedSince(sw.windowHours)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	result := &Result{}
	for _, id := range ids {
		result.Clusters++

		if err := sw.analyzer.Record(id); err != nil {
			log.Printf("sweep: snapshot %s: %v", id, err)
			result.Errors++
			continue
		}
		if _, err := sw.analyzer.Analyze(id, sw.trendWindow); err != nil {
			log.Printf("sweep: trend %s: %v", id, err)
			result.Errors++
		}
		if _, err := sw.ranker.CompositeRank(id); err != nil {
			log.Printf("sweep: rank %s: %v", id, err)
			result.Errors++
		}
		detection, err := sw.ranker.DetectAnomalies(id)
		if err != nil {
			log.Printf("sweep: anomalies %s: %v", id, err)
			result.Errors++
			continue
		}
		if detection.IsAnomaly {
			result.Anomalies++
		}
	}

	log.Printf("sweep: %d clusters, %d anomalies, %d errors", result.Clusters, result.Anomalies, result.Errors)
	return result, nil
}

// Start schedules RunOnce on the given cron spec and begins running.
func (sw *Sweeper) Start(schedule string) error {
	sw.cron = cron.New()
	_, err := sw.cron.AddFunc(schedule, func() {
		if _, err := sw.RunOnce(); err != nil {
			log.Printf("sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling sweep %q: %w", schedule, err)
	}
	sw.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for a running pass to finish.
func (sw *Sweeper) Stop() {
	if sw.cron != nil {
		<-sw.cron.Stop().Done()
	}
}

package store

import (
	"testing"
	"time"
)

func TestAppendHeatHistoryVelocity(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Topic", CategoryCrypto)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	snapshots := []struct {
		heat         float64
		wantVelocity float64
	}{
		{10, 0},
		{25, 15},
		{20, -5},
		{20, 0},
	}
	for i, snap := range snapshots {
		s.SetClock(func() time.Time { return base.Add(time.Duration(i) * time.Hour) })
		v, err := s.AppendHeatHistory("c1", snap.heat, i+1, i+1)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if !approxEqual(v, snap.wantVelocity) {
			t.Errorf("append %d: velocity = %v, want %v", i, v, snap.wantVelocity)
		}
	}

	// The latest velocity is mirrored onto the cluster row.
	c, err := s.GetClusterByID("c1")
	if err != nil {
		t.Fatalf("get cluster: %v", err)
	}
	if !approxEqual(c.HeatVelocity, 0) {
		t.Errorf("cluster heatVelocity = %v, want 0", c.HeatVelocity)
	}

	points, err := s.GetHeatHistory("c1", 10)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}
	// Most recent first.
	if !approxEqual(points[0].HeatScore, 20) || !approxEqual(points[3].HeatScore, 10) {
		t.Errorf("unexpected ordering: %+v", points)
	}
}

func TestGetHeatHistorySince(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Topic", CategoryCrypto)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		s.SetClock(func() time.Time { return base.Add(time.Duration(i-5) * time.Hour) })
		if _, err := s.AppendHeatHistory("c1", float64(10+i), i+1, i+1); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	s.SetClock(func() time.Time { return base })

	points, err := s.GetHeatHistorySince("c1", 2.5)
	if err != nil {
		t.Fatalf("history since: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points inside window, got %d", len(points))
	}
	// Oldest first inside the window.
	if points[0].HeatScore >= points[len(points)-1].HeatScore {
		t.Errorf("expected ascending time order: %+v", points)
	}
}

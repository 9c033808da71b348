package heat

import (
	"math"
	"testing"
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

var testConfig = store.HeatDecayConfig{
	Category:           store.CategoryCrypto,
	DecayConstant:      0.08,
	ActivityBoostHours: 6,
	SpikeMultiplier:    2.0,
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreImportanceMultipliers(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		importance string
		want       float64
	}{
		{store.ImportanceCritical, 60}, // 10 * spike(2.0) * 3
		{store.ImportanceHigh, 20},
		{store.ImportanceMedium, 15},
		{store.ImportanceLow, 10},
		{"", 15},
	}
	for _, tc := range cases {
		article := &store.Article{
			Importance:  tc.importance,
			Sentiment:   store.SentimentNeutral,
			PublishedAt: now,
		}
		got := Score(article, time.Time{}, 10, &testConfig, now)
		if !approxEqual(got, tc.want) {
			t.Errorf("importance %q: score = %v, want %v", tc.importance, got, tc.want)
		}
	}
}

func TestScoreSentimentBoost(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	neutral := &store.Article{Importance: store.ImportanceLow, Sentiment: store.SentimentNeutral, PublishedAt: now}
	charged := &store.Article{Importance: store.ImportanceLow, Sentiment: "NEGATIVE", PublishedAt: now}

	base := Score(neutral, time.Time{}, 10, &testConfig, now)
	boosted := Score(charged, time.Time{}, 10, &testConfig, now)
	if !approxEqual(boosted, base*1.1) {
		t.Errorf("charged sentiment: %v, want %v", boosted, base*1.1)
	}
}

func TestScoreExponentialDecay(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	article := &store.Article{
		Importance:  store.ImportanceLow,
		Sentiment:   store.SentimentNeutral,
		PublishedAt: now.Add(-10 * time.Hour),
	}

	got := Score(article, time.Time{}, 10, &testConfig, now)
	want := 10 * math.Exp(-0.08*10)
	if !approxEqual(got, want) {
		t.Errorf("score = %v, want %v", got, want)
	}

	// A future publish timestamp never amplifies.
	future := &store.Article{
		Importance:  store.ImportanceLow,
		Sentiment:   store.SentimentNeutral,
		PublishedAt: now.Add(2 * time.Hour),
	}
	if got := Score(future, time.Time{}, 10, &testConfig, now); !approxEqual(got, 10) {
		t.Errorf("future publish: score = %v, want 10", got)
	}
}

func TestScoreActivityBoost(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	article := &store.Article{
		Importance:  store.ImportanceLow,
		Sentiment:   store.SentimentNeutral,
		PublishedAt: now,
	}

	// Cluster touched within the activity window.
	active := Score(article, now.Add(-2*time.Hour), 10, &testConfig, now)
	if !approxEqual(active, 13) {
		t.Errorf("active cluster: score = %v, want 13", active)
	}

	// Cluster quiet past the window.
	quiet := Score(article, now.Add(-8*time.Hour), 10, &testConfig, now)
	if !approxEqual(quiet, 10) {
		t.Errorf("quiet cluster: score = %v, want 10", quiet)
	}

	// New cluster without a timestamp.
	fresh := Score(article, time.Time{}, 10, &testConfig, now)
	if !approxEqual(fresh, 10) {
		t.Errorf("fresh cluster: score = %v, want 10", fresh)
	}
}

func TestScoreDefaultBaseHeat(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	article := &store.Article{
		Importance:  store.ImportanceLow,
		Sentiment:   store.SentimentNeutral,
		PublishedAt: now,
	}
	if got := Score(article, time.Time{}, 0, &testConfig, now); !approxEqual(got, DefaultBaseHeat) {
		t.Errorf("score = %v, want %v", got, DefaultBaseHeat)
	}
}

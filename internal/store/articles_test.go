package store

import (
	"testing"
	"time"
)

func TestUpsertArticleRefreshesLabels(t *testing.T) {
	s := openTestStore(t)

	first := &Article{
		ID:         "a1",
		Title:      "Bitcoin Surges",
		Category:   CategoryCrypto,
		Sentiment:  SentimentNeutral,
		Importance: ImportanceMedium,
	}
	if err := s.UpsertArticle(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	stored, err := s.GetArticleByID("a1")
	if err != nil {
		t.Fatal(err)
	}
	createdAt := stored.CreatedAt

	second := *first
	second.Importance = ImportanceCritical
	if err := s.UpsertArticle(&second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err = s.GetArticleByID("a1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Importance != ImportanceCritical {
		t.Errorf("importance = %q, want CRITICAL", stored.Importance)
	}
	if !stored.CreatedAt.Equal(createdAt) {
		t.Errorf("createdAt changed on re-ingest: %v -> %v", createdAt, stored.CreatedAt)
	}

	missing, err := s.GetArticleByID("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing article")
	}
}

func TestArticleCountSince(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base.Add(-48 * time.Hour) })
	mustUpsertArticle(t, s, "old", "Old Headline")

	s.SetClock(func() time.Time { return base })
	mustUpsertArticle(t, s, "fresh", "Fresh Headline")

	count, err := s.ArticleCountSince(24)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Topic", CategoryCrypto)
	mustUpsertArticle(t, s, "a1", "Headline")
	s.AddArticleToCluster("c1", "a1", "fp1", 10, "")
	if _, err := s.AppendHeatHistory("c1", 10, 1, 1); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Clusters != 1 || stats.Articles != 1 || stats.HistoryRows != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("lastUpdated not set")
	}
}

package ingest

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/storyheat/storyheat/internal/config"
	"github.com/storyheat/storyheat/internal/decay"
	"github.com/storyheat/storyheat/internal/store"
)

type fakeParser struct {
	entries map[string][]Entry
}

func (f *fakeParser) Parse(feed config.Feed, daysBack int) ([]Entry, error) {
	return f.entries[feed.URL], nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRunClustersRelatedCoverage(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	parser := &fakeParser{entries: map[string][]Entry{
		"https://example.com/econ": {
			{URL: "https://example.com/1", Title: "Fed Rate Decision", Category: store.CategoryEconomics, PublishedAt: now},
			{URL: "https://example.com/2", Title: "Fed Rate Decision", Category: store.CategoryEconomics, PublishedAt: now},
			{URL: "https://example.com/3", Title: "Bitcoin Breaks Record", Category: store.CategoryCrypto, PublishedAt: now},
		},
	}}
	cfg := config.Ingest{
		Feeds:    []config.Feed{{URL: "https://example.com/econ", Name: "econ", Category: store.CategoryEconomics}},
		BaseHeat: 10,
		DaysBack: 2,
	}

	in := New(s, decay.NewProvider(s, 0), cfg, parser)
	in.SetClock(func() time.Time { return now })

	result, err := in.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Articles != 3 {
		t.Errorf("articles = %d, want 3", result.Articles)
	}
	if result.NewClusters != 2 {
		t.Errorf("newClusters = %d, want 2", result.NewClusters)
	}
	if result.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.Duplicates)
	}
	if result.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", result.Skipped)
	}

	// Both same-title articles land in one cluster with the duplicate
	// penalized.
	clusterID, err := s.GetClusterIDByTopicKey("Fed Rate Decision")
	if err != nil {
		t.Fatal(err)
	}
	if clusterID == "" {
		t.Fatal("cluster not created")
	}
	c, err := s.GetClusterByID(clusterID)
	if err != nil {
		t.Fatal(err)
	}
	if c.ArticleCount != 2 {
		t.Errorf("articleCount = %d, want 2", c.ArticleCount)
	}
	if c.UniqueTitleCount != 1 {
		t.Errorf("uniqueTitleCount = %d, want 1", c.UniqueTitleCount)
	}

	// Each attach records a heat snapshot.
	points, err := s.GetHeatHistory(clusterID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Errorf("history points = %d, want 2", len(points))
	}
}

func TestIngestEntryDuplicatePenalty(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	cfg := config.Ingest{BaseHeat: 10}
	in := New(s, decay.NewProvider(s, 0), cfg, &fakeParser{})
	in.SetClock(func() time.Time { return now })

	first := Entry{URL: "https://example.com/1", Title: "Fed Rate Decision", Category: store.CategoryEconomics, PublishedAt: now}
	if err := in.IngestEntry(first, nil); err != nil {
		t.Fatalf("first entry: %v", err)
	}

	clusterID, _ := s.GetClusterIDByTopicKey("Fed Rate Decision")
	heatAfterFirst := clusterHeat(t, s, clusterID)
	// MEDIUM importance, published now: 10 * 1.5.
	if !approxEqual(heatAfterFirst, 15) {
		t.Errorf("heat after first = %v, want 15", heatAfterFirst)
	}

	second := Entry{URL: "https://example.com/2", Title: "Fed Rate Decision", Category: store.CategoryEconomics, PublishedAt: now}
	if err := in.IngestEntry(second, nil); err != nil {
		t.Fatalf("second entry: %v", err)
	}

	// The cluster was touched moments ago, so the second article gets the
	// activity boost but only 15% of its delta counts as a duplicate title.
	heatAfterSecond := clusterHeat(t, s, clusterID)
	want := 15 + 15*1.3*0.15
	if !approxEqual(heatAfterSecond, want) {
		t.Errorf("heat after second = %v, want %v", heatAfterSecond, want)
	}
}

func TestIngestEntryIdempotent(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	in := New(s, decay.NewProvider(s, 0), config.Ingest{BaseHeat: 10}, &fakeParser{})
	in.SetClock(func() time.Time { return now })

	entry := Entry{URL: "https://example.com/1", Title: "Bitcoin Breaks Record", Category: store.CategoryCrypto, PublishedAt: now}
	if err := in.IngestEntry(entry, nil); err != nil {
		t.Fatal(err)
	}
	clusterID, _ := s.GetClusterIDByTopicKey("Bitcoin Breaks Record")
	before := clusterHeat(t, s, clusterID)

	if err := in.IngestEntry(entry, nil); err != nil {
		t.Fatal(err)
	}
	after := clusterHeat(t, s, clusterID)
	if !approxEqual(before, after) {
		t.Errorf("re-ingest changed heat: %v -> %v", before, after)
	}

	c, _ := s.GetClusterByID(clusterID)
	if c.ArticleCount != 1 {
		t.Errorf("articleCount = %d, want 1", c.ArticleCount)
	}
}

func clusterHeat(t *testing.T, s *store.Store, id string) float64 {
	t.Helper()
	c, err := s.GetClusterByID(id)
	if err != nil || c == nil {
		t.Fatalf("get cluster %s: %v", id, err)
	}
	return c.HeatScore
}

func TestIngestEntryLinksTags(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	in := New(s, decay.NewProvider(s, 0), config.Ingest{BaseHeat: 10}, &fakeParser{})
	in.SetClock(func() time.Time { return now })

	entry := Entry{
		URL:         "https://example.com/1",
		Title:       "Bitcoin Breaks Record",
		Category:    store.CategoryCrypto,
		PublishedAt: now,
		Tags:        []string{"Bitcoin", "Markets"},
	}
	if err := in.IngestEntry(entry, nil); err != nil {
		t.Fatal(err)
	}

	clusterID, _ := s.GetClusterIDByTopicKey("Bitcoin Breaks Record")
	c, err := s.GetClusterByID(clusterID)
	if err != nil {
		t.Fatal(err)
	}
	// The full attached heat rolls up through the tag entities.
	if !approxEqual(c.EntityHeatScore, c.HeatScore) {
		t.Errorf("entityHeatScore = %v, want %v", c.EntityHeatScore, c.HeatScore)
	}

	trending, err := s.GetTrendingEntities(10, 24)
	if err != nil {
		t.Fatal(err)
	}
	if len(trending) != 2 {
		t.Fatalf("expected 2 tag entities, got %d", len(trending))
	}
}

func TestStableIdentifiers(t *testing.T) {
	if ArticleID("https://example.com/1") != ArticleID("https://example.com/1") {
		t.Error("article id not stable")
	}
	if ArticleID("https://example.com/1") == ArticleID("https://example.com/2") {
		t.Error("distinct urls collide")
	}

	// Cluster ids derive from the normalized topic key, so casing and
	// spacing variants agree.
	if ClusterID("Fed Rate Decision") != ClusterID("fed  rate DECISION") {
		t.Error("cluster id not normalization-stable")
	}

	// Fingerprints ignore punctuation and case.
	if TitleFingerprint("Fed Holds Rates!") != TitleFingerprint("fed holds rates") {
		t.Error("fingerprint not punctuation-stable")
	}
	if TitleFingerprint("Fed Holds Rates") == TitleFingerprint("Fed Cuts Rates") {
		t.Error("distinct titles collide")
	}
}

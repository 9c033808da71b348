package store

import (
	"testing"
	"time"
)

func TestUpsertClusterPreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })
	mustUpsertCluster(t, s, "c1", "Fed Rate Decision", CategoryEconomics)

	s.SetClock(func() time.Time { return base.Add(2 * time.Hour) })
	if err := s.UpsertCluster(&StoryCluster{ID: "c1", Topic: "Fed Rate Decision Update", Category: CategoryEconomics}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	c, err := s.GetClusterByID("c1")
	if err != nil {
		t.Fatalf("get cluster: %v", err)
	}
	if !c.CreatedAt.Equal(base) {
		t.Errorf("createdAt changed: %v", c.CreatedAt)
	}
	if !c.FirstSeen.Equal(base) {
		t.Errorf("firstSeen changed: %v", c.FirstSeen)
	}
	if !c.UpdatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("updatedAt not advanced: %v", c.UpdatedAt)
	}
	if c.Topic != "Fed Rate Decision Update" {
		t.Errorf("topic not updated: %q", c.Topic)
	}
	if c.TopicKey != "fed_rate_decision_update" {
		t.Errorf("topic key not recomputed: %q", c.TopicKey)
	}
}

func TestGetClusterIDByTopicKey(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Fed Rate Decision", CategoryEconomics)

	id, err := s.GetClusterIDByTopicKey("FED rate   decision")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "c1" {
		t.Errorf("expected c1, got %q", id)
	}

	id, err = s.GetClusterIDByTopicKey("something else entirely")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Errorf("expected no match, got %q", id)
	}
}

func TestGetClusterIDByTopicKeySubSecondOrdering(t *testing.T) {
	s := openTestStore(t)

	// Timestamps .100s and .150s into the same second: a layout that
	// trims trailing fractional zeros would sort "0.1Z" after "0.15Z"
	// and return the stale cluster.
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base.Add(100 * time.Millisecond) })
	mustUpsertCluster(t, s, "earlier", "Fed Rate Decision", CategoryEconomics)

	s.SetClock(func() time.Time { return base.Add(150 * time.Millisecond) })
	if err := s.UpsertCluster(&StoryCluster{ID: "later", Topic: "Fed Rate Decision", Category: CategoryEconomics}); err != nil {
		t.Fatalf("upsert later: %v", err)
	}

	id, err := s.GetClusterIDByTopicKey("Fed Rate Decision")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "later" {
		t.Errorf("expected most recently updated cluster, got %q", id)
	}
}

func TestDuplicatePenaltySequence(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Fed Rate Decision", CategoryEconomics)

	wantHeat := []float64{10.0, 11.5, 12.0, 12.2}
	wantIndex := []int{0, 1, 2, 3}

	for i := 0; i < 4; i++ {
		articleID := string(rune('a'+i)) + "1"
		mustUpsertArticle(t, s, articleID, "Fed Holds Rates Steady")

		res, err := s.AddArticleToCluster("c1", articleID, "fp-same", 10, "")
		if err != nil {
			t.Fatalf("attach %d: %v", i, err)
		}
		if !res.WasNew {
			t.Errorf("attach %d: expected wasNew", i)
		}
		if res.DuplicateIndex != wantIndex[i] {
			t.Errorf("attach %d: duplicateIndex = %d, want %d", i, res.DuplicateIndex, wantIndex[i])
		}

		c, err := s.GetClusterByID("c1")
		if err != nil {
			t.Fatalf("get cluster: %v", err)
		}
		if !approxEqual(c.HeatScore, wantHeat[i]) {
			t.Errorf("attach %d: heat = %v, want %v", i, c.HeatScore, wantHeat[i])
		}
	}

	c, _ := s.GetClusterByID("c1")
	if c.ArticleCount != 4 {
		t.Errorf("articleCount = %d, want 4", c.ArticleCount)
	}
	if c.UniqueTitleCount != 1 {
		t.Errorf("uniqueTitleCount = %d, want 1", c.UniqueTitleCount)
	}
}

func TestReattachIsNoOp(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })
	mustUpsertCluster(t, s, "c1", "Some Story", CategoryCrypto)
	mustUpsertArticle(t, s, "a1", "Some Story Headline")

	first, err := s.AddArticleToCluster("c1", "a1", "fp1", 10, "")
	if err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if !first.WasNew {
		t.Error("first attach should be new")
	}

	heatBefore := clusterHeat(t, s, "c1")

	s.SetClock(func() time.Time { return base.Add(time.Hour) })
	second, err := s.AddArticleToCluster("c1", "a1", "fp1", 10, "")
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}
	if second.WasNew {
		t.Error("second attach should not be new")
	}
	if heat := clusterHeat(t, s, "c1"); !approxEqual(heat, heatBefore) {
		t.Errorf("heat changed on re-attach: %v -> %v", heatBefore, heat)
	}

	c, _ := s.GetClusterByID("c1")
	if c.ArticleCount != 1 {
		t.Errorf("articleCount = %d, want 1", c.ArticleCount)
	}
	if !c.UpdatedAt.Equal(base) {
		t.Errorf("updatedAt bumped on re-attach: %v", c.UpdatedAt)
	}
}

func clusterHeat(t *testing.T, s *Store, id string) float64 {
	t.Helper()
	c, err := s.GetClusterByID(id)
	if err != nil || c == nil {
		t.Fatalf("get cluster %s: %v", id, err)
	}
	return c.HeatScore
}

func TestCounterInvariant(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Topic One", CategoryStocks)

	fingerprints := []string{"fp1", "fp1", "fp2", "fp3", "fp2"}
	for i, fp := range fingerprints {
		articleID := string(rune('a' + i))
		mustUpsertArticle(t, s, articleID, "Title "+articleID)
		if _, err := s.AddArticleToCluster("c1", articleID, fp, 5, ""); err != nil {
			t.Fatalf("attach %d: %v", i, err)
		}
	}

	c, _ := s.GetClusterByID("c1")
	if c.ArticleCount != 5 {
		t.Errorf("articleCount = %d, want 5", c.ArticleCount)
	}
	if c.UniqueTitleCount != 3 {
		t.Errorf("uniqueTitleCount = %d, want 3", c.UniqueTitleCount)
	}
}

func TestMergeClusters(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "A", "Topic A", CategoryCrypto)
	mustUpsertCluster(t, s, "B", "Topic B", CategoryCrypto)

	for _, id := range []string{"1", "2", "3"} {
		mustUpsertArticle(t, s, id, "Article "+id)
	}
	s.AddArticleToCluster("A", "1", "fpa1", 10, "")
	s.AddArticleToCluster("A", "2", "fpa2", 10, "")
	s.AddArticleToCluster("B", "2", "fpb2", 10, "")
	s.AddArticleToCluster("B", "3", "fpb3", 10, "")

	heatA := clusterHeat(t, s, "A")
	heatB := clusterHeat(t, s, "B")

	result, err := s.MergeClusters("A", "B")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !result.Deleted {
		t.Error("expected source deleted")
	}
	if result.Moved != 1 {
		t.Errorf("moved = %d, want 1", result.Moved)
	}

	a, _ := s.GetClusterByID("A")
	if a.ArticleCount != 3 {
		t.Errorf("articleCount = %d, want 3", a.ArticleCount)
	}
	if !approxEqual(a.HeatScore, heatA+heatB) {
		t.Errorf("heat = %v, want %v", a.HeatScore, heatA+heatB)
	}

	b, _ := s.GetClusterByID("B")
	if b != nil {
		t.Error("source cluster still exists")
	}

	links, err := s.FindClusterIDsByArticleIDs([]string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("find links: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if links[id] != "A" {
			t.Errorf("article %s linked to %q, want A", id, links[id])
		}
	}
}

func TestMergeClustersNoOp(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "A", "Topic A", CategoryCrypto)

	cases := []struct{ target, source string }{
		{"A", "A"},
		{"A", "missing"},
		{"missing", "A"},
		{"", "A"},
	}
	for _, tc := range cases {
		result, err := s.MergeClusters(tc.target, tc.source)
		if err != nil {
			t.Fatalf("merge(%q, %q): %v", tc.target, tc.source, err)
		}
		if result.Deleted || result.Moved != 0 {
			t.Errorf("merge(%q, %q) = %+v, want no-op", tc.target, tc.source, result)
		}
	}
}

func TestGetHotClusters(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base.Add(-48 * time.Hour) })
	mustUpsertCluster(t, s, "old", "Old Story", CategoryCrypto)

	s.SetClock(func() time.Time { return base })
	mustUpsertCluster(t, s, "hot", "Hot Story", CategoryCrypto)
	mustUpsertCluster(t, s, "warm", "Warm Story", CategoryStocks)
	mustUpsertArticle(t, s, "a1", "Hot Story Headline")
	mustUpsertArticle(t, s, "a2", "Warm Story Headline")
	s.AddArticleToCluster("hot", "a1", "fp1", 100, "")
	s.AddArticleToCluster("warm", "a2", "fp2", 50, "")

	clusters, err := s.GetHotClusters(10, 24, "")
	if err != nil {
		t.Fatalf("hot clusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].ID != "hot" || clusters[1].ID != "warm" {
		t.Errorf("wrong order: %s, %s", clusters[0].ID, clusters[1].ID)
	}

	crypto, err := s.GetHotClusters(10, 24, CategoryCrypto)
	if err != nil {
		t.Fatalf("hot clusters by category: %v", err)
	}
	if len(crypto) != 1 || crypto[0].ID != "hot" {
		t.Errorf("category filter failed: %+v", crypto)
	}
}

func TestGetClusterDetailsAndSampleTitles(t *testing.T) {
	s := openTestStore(t)
	mustUpsertCluster(t, s, "c1", "Topic", CategoryCrypto)

	if err := s.UpsertArticle(&Article{ID: "a1", Title: "First Title", PublishedAt: time.Now().Add(-2 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertArticle(&Article{ID: "a2", Title: "Second Title", PublishedAt: time.Now().Add(-1 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	s.AddArticleToCluster("c1", "a1", "fp1", 10, "")
	s.AddArticleToCluster("c1", "a2", "fp2", 10, "")

	details, err := s.GetClusterDetails("c1")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details == nil || len(details.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %+v", details)
	}

	titles, err := s.GetClusterSampleTitles("c1", 5)
	if err != nil {
		t.Fatalf("sample titles: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %d", len(titles))
	}
	if titles[0] != "Second Title" {
		t.Errorf("expected most recent first, got %q", titles[0])
	}

	missing, err := s.GetClusterDetails("nope")
	if err != nil {
		t.Fatalf("missing details: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing cluster")
	}
}

// Package ingest is the upstream driver for the engine: it parses
// configured feeds, normalizes entries into article records, resolves or
// creates the matching cluster and attaches each article with its scored
// heat delta.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/storyheat/storyheat/internal/config"
	"github.com/storyheat/storyheat/internal/decay"
	"github.com/storyheat/storyheat/internal/entity"
	"github.com/storyheat/storyheat/internal/heat"
	"github.com/storyheat/storyheat/internal/store"
	"github.com/storyheat/storyheat/internal/trend"
)

const (
	maxPerFeed     = 50
	maxTagsPerItem = 5
)

// tagEntityType classifies entities derived from feed item tags. Feed
// metadata carries no finer typing than "this is a subject tag".
const tagEntityType = "TOPIC"

// Result summarizes one ingestion run.
type Result struct {
	Articles    int
	NewClusters int
	Duplicates  int
	Skipped     int
}

// Ingestor feeds normalized articles into the cluster store.
type Ingestor struct {
	store    *store.Store
	provider *decay.Provider
	analyzer *trend.Analyzer
	linker   *entity.Linker
	cfg      config.Ingest
	parser   FeedSource
	now      func() time.Time
}

// FeedSource abstracts feed parsing so tests can inject entries.
type FeedSource interface {
	Parse(feed config.Feed, daysBack int) ([]Entry, error)
}

// Entry is one normalized feed item.
type Entry struct {
	URL         string
	Title       string
	Category    string
	PublishedAt time.Time
	Tags        []string
}

// New creates an Ingestor.
func New(s *store.Store, provider *decay.Provider, cfg config.Ingest, parser FeedSource) *Ingestor {
	if parser == nil {
		parser = NewFeedParser()
	}
	return &Ingestor{
		store:    s,
		provider: provider,
		analyzer: trend.NewAnalyzer(s),
		linker:   entity.NewLinker(s),
		cfg:      cfg,
		parser:   parser,
		now:      time.Now,
	}
}

// SetClock overrides the ingestor clock for tests.
func (in *Ingestor) SetClock(now func() time.Time) {
	in.now = now
}

// Run ingests all configured feeds.
func (in *Ingestor) Run() (*Result, error) {
	result := &Result{}
	for _, feed := range in.cfg.Feeds {
		entries, err := in.parser.Parse(feed, in.cfg.DaysBack)
		if err != nil {
			log.Printf("failed to parse feed %s: %v", feed.URL, err)
			continue
		}
		for _, entry := range entries {
			if err := in.IngestEntry(entry, result); err != nil {
				log.Printf("ingesting %q: %v", entry.Title, err)
				result.Skipped++
			}
		}
	}
	log.Printf("ingest: %d articles, %d new clusters, %d duplicate titles, %d skipped",
		result.Articles, result.NewClusters, result.Duplicates, result.Skipped)
	return result, nil
}

// IngestEntry normalizes one entry, resolves its cluster and attaches it.
func (in *Ingestor) IngestEntry(entry Entry, result *Result) error {
	article := &store.Article{
		ID:          ArticleID(entry.URL),
		Title:       entry.Title,
		Category:    entry.Category,
		Sentiment:   store.SentimentNeutral,
		Importance:  store.ImportanceMedium,
		PublishedAt: entry.PublishedAt,
		CreatedAt:   in.now(),
	}
	if err := in.store.UpsertArticle(article); err != nil {
		return err
	}

	clusterID, err := in.store.GetClusterIDByTopicKey(entry.Title)
	if err != nil {
		return err
	}

	var lastUpdated time.Time
	if clusterID == "" {
		clusterID = ClusterID(entry.Title)
		if err := in.store.UpsertCluster(&store.StoryCluster{
			ID:       clusterID,
			Topic:    entry.Title,
			Category: entry.Category,
		}); err != nil {
			return err
		}
		if result != nil {
			result.NewClusters++
		}
	} else {
		c, err := in.store.GetClusterByID(clusterID)
		if err != nil {
			return err
		}
		if c != nil {
			lastUpdated = c.UpdatedAt
		}
	}

	cfg := in.provider.Get(entry.Category)
	delta := heat.Score(article, lastUpdated, in.cfg.BaseHeat, &cfg, in.now())

	attach, err := in.store.AddArticleToCluster(clusterID, article.ID, TitleFingerprint(entry.Title), delta, "")
	if err != nil {
		return err
	}

	if result != nil {
		if attach.WasNew {
			result.Articles++
		}
		if attach.DuplicateIndex > 0 {
			result.Duplicates++
		}
	}

	if attach.WasNew {
		if len(entry.Tags) > 0 {
			mentions := make([]entity.Mention, 0, len(entry.Tags))
			for _, tag := range entry.Tags {
				mentions = append(mentions, entity.Mention{Name: tag, Type: tagEntityType})
			}
			if err := in.linker.LinkArticleEntities(article.ID, clusterID, mentions, delta*attach.PenaltyMultiplier); err != nil {
				log.Printf("linking tags for %s: %v", article.ID, err)
			}
		}
		if err := in.analyzer.Record(clusterID); err != nil {
			log.Printf("recording heat history for %s: %v", clusterID, err)
		}
	}
	return nil
}

// ArticleID derives a stable article id from its URL.
func ArticleID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "a_" + hex.EncodeToString(sum[:8])
}

// ClusterID derives a cluster id from the normalized topic key.
func ClusterID(topic string) string {
	sum := sha256.Sum256([]byte(store.NormalizeTopicKey(topic)))
	return "c_" + hex.EncodeToString(sum[:8])
}

// TitleFingerprint reduces a title to a near-duplicate signature: lower
// case, letters and digits only, then hashed.
func TitleFingerprint(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

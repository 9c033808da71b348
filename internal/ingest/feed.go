package ingest

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/storyheat/storyheat/internal/config"
)

// FeedParser parses RSS/Atom feeds into normalized entries.
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a FeedParser.
func NewFeedParser() *FeedParser {
	return &FeedParser{parser: gofeed.NewParser()}
}

// Parse fetches one feed and returns its entries within daysBack.
func (fp *FeedParser) Parse(feed config.Feed, daysBack int) ([]Entry, error) {
	parsed, err := fp.parser.ParseURL(feed.URL)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -daysBack)

	var entries []Entry
	for _, item := range parsed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item, feed.Category)
		if entry == nil {
			continue
		}
		if !entry.PublishedAt.IsZero() && entry.PublishedAt.Before(cutoff) {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, category string) *Entry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	var tags []string
	for _, c := range item.Categories {
		if tag := strings.TrimSpace(c); tag != "" {
			tags = append(tags, tag)
		}
		if len(tags) >= maxTagsPerItem {
			break
		}
	}

	return &Entry{
		URL:         itemURL,
		Title:       title,
		Category:    category,
		PublishedAt: published,
		Tags:        tags,
	}
}

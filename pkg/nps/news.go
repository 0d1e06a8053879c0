package nps

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed is a per-park news feed (RSS or Atom).
type Feed struct {
	Name     string
	ParkCode string
	URL      string
}

// NewsItem is a single entry of a park news feed.
type NewsItem struct {
	ID          string    `json:"id" db:"id"`
	ParkCode    string    `json:"park_code" db:"park_code"`
	Feed        string    `json:"feed" db:"feed"`
	Title       string    `json:"title" db:"title"`
	URL         string    `json:"url" db:"url"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	CollectedAt time.Time `json:"collected_at" db:"collected_at"`
}

// News collects park news from configured feeds.
type News struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []Feed
	logger *slog.Logger
}

// NewNews creates a news collector.
func NewNews(feeds []Feed, logger *slog.Logger) *News {
	return &News{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		logger: logger,
	}
}

// Collect fetches every feed. A failing feed is logged and skipped; only a
// cancelled context is returned as an error.
func (n *News) Collect(ctx context.Context) ([]NewsItem, error) {
	var all []NewsItem
	for _, feed := range n.feeds {
		items, err := n.collectFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			n.logger.Warn("news feed failed", "feed", feed.Name, "error", err)
			continue
		}
		all = append(all, items...)
	}
	return all, nil
}

func (n *News) collectFeed(ctx context.Context, feed Feed) ([]NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "parksync/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	now := time.Now().UTC()
	var items []NewsItem
	for _, entry := range parsed.Items {
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		key := entry.GUID
		if key == "" {
			key = link
		}
		if key == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, NewsItem{
			ID:          feed.Name + ":" + key,
			ParkCode:    feed.ParkCode,
			Feed:        feed.Name,
			Title:       entry.Title,
			URL:         link,
			PublishedAt: published,
			CollectedAt: now,
		})
	}
	return items, nil
}

// Package news collects recent crypto headlines for the LLM prompt.
package news

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/types"
)

// Default RSS sources, overridable from config.
var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss/tag/bitcoin",
}

type Fetcher struct {
	feeds       []string
	maxArticles int
	window      time.Duration
	timeout     time.Duration
}

func NewFetcher(feeds []string, maxArticles, windowHours int) *Fetcher {
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	if maxArticles <= 0 {
		maxArticles = 10
	}
	if windowHours <= 0 {
		windowHours = 24
	}
	return &Fetcher{
		feeds:       feeds,
		maxArticles: maxArticles,
		window:      time.Duration(windowHours) * time.Hour,
		timeout:     15 * time.Second,
	}
}

// Fetch returns headlines published within the window, newest first, capped
// at maxArticles. Feed failures are logged; the result is whatever could be
// collected, possibly empty.
func (f *Fetcher) Fetch(ctx context.Context) []types.NewsArticle {
	cutoff := time.Now().Add(-f.window)

	type dated struct {
		article types.NewsArticle
		at      time.Time
	}
	var collected []dated

	for _, feed := range f.feeds {
		c := colly.NewCollector()
		c.SetRequestTimeout(f.timeout)

		c.OnXML("//item", func(e *colly.XMLElement) {
			published, err := parsePubDate(e.ChildText("pubDate"))
			if err != nil || published.Before(cutoff) {
				return
			}
			collected = append(collected, dated{
				article: types.NewsArticle{
					Title:       strings.TrimSpace(e.ChildText("title")),
					Summary:     stripHTML(e.ChildText("description")),
					URL:         strings.TrimSpace(e.ChildText("link")),
					Source:      e.Request.URL.Host,
					PublishedAt: published.Format(time.RFC1123),
				},
				at: published,
			})
		})

		if err := c.Visit(feed); err != nil {
			logger.ErrorWithErr(ctx, "Failed to fetch news feed", err, "feed", feed)
			continue
		}
		c.Wait()
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].at.After(collected[j].at) })
	if len(collected) > f.maxArticles {
		collected = collected[:f.maxArticles]
	}

	out := make([]types.NewsArticle, 0, len(collected))
	for _, d := range collected {
		out = append(out, d.article)
	}
	logger.Info(ctx, "News fetched", "articles", len(out), "feeds", len(f.feeds))
	return out
}

// RSS dates show up in a few flavors across feeds.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range pubDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// stripHTML reduces an RSS description to its text content.
func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/tradeswarm/tradeswarm/pkg/models"
)

const defaultGoogleNewsBaseURL = "https://news.google.com/rss/search"

// GoogleNews implements NewsSearch over the Google News RSS search feed,
// regionalised to Indian English results.
type GoogleNews struct {
	client  *resty.Client
	parser  *gofeed.Parser
	cache   *Cache
	baseURL string
}

// GoogleNewsOption configures the news source.
type GoogleNewsOption func(*GoogleNews)

// WithNewsBaseURL points the source at a different feed URL (used by tests).
func WithNewsBaseURL(u string) GoogleNewsOption {
	return func(g *GoogleNews) { g.baseURL = strings.TrimRight(u, "/") }
}

// NewGoogleNews creates a Google News RSS search source.
func NewGoogleNews(cacheTTL time.Duration, opts ...GoogleNewsOption) *GoogleNews {
	g := &GoogleNews{
		client: resty.New().
			SetTimeout(20 * time.Second).
			SetHeader("User-Agent", DefaultUserAgent),
		parser:  gofeed.NewParser(),
		cache:   NewCache(cacheTTL),
		baseURL: defaultGoogleNewsBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search returns up to `limit` recent headlines for the query.
func (g *GoogleNews) Search(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("news:%s:%d", query, limit)
	if v, ok := g.cache.Get(key); ok {
		return v.([]models.NewsArticle), nil
	}

	feedURL := fmt.Sprintf("%s?q=%s&hl=en-IN&gl=IN&ceid=IN:en", g.baseURL, url.QueryEscape(query))
	resp, err := g.client.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch news for %q: %w", query, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       truncate(resp.String(), 256),
		}
	}

	feed, err := g.parser.ParseString(resp.String())
	if err != nil {
		return nil, fmt.Errorf("parse news feed for %q: %w", query, err)
	}

	articles := make([]models.NewsArticle, 0, limit)
	for _, item := range feed.Items {
		if len(articles) >= limit {
			break
		}
		articles = append(articles, itemToArticle(item))
	}

	g.cache.Set(key, articles)
	return articles, nil
}

// itemToArticle converts an RSS item to a NewsArticle. Google News
// embeds the publisher after " - " in the title and serves HTML in the
// description, which is stripped.
func itemToArticle(item *gofeed.Item) models.NewsArticle {
	a := models.NewsArticle{
		Title:   item.Title,
		Snippet: stripHTML(item.Description),
		URL:     item.Link,
	}
	if item.PublishedParsed != nil {
		a.Date = *item.PublishedParsed
	}
	if idx := strings.LastIndex(item.Title, " - "); idx > 0 {
		a.Title = item.Title[:idx]
		a.Source = item.Title[idx+3:]
	}
	return a
}

// stripHTML extracts the text content from an HTML fragment.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package gateway

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/folio-pulse/app/content"
)

// FeedSource serves blog posts from the portfolio's public RSS/Atom feed
// and delegates every other kind to the wrapped Gateway.
type FeedSource struct {
	next       Gateway
	feedURL    string
	httpClient HTTPClient
	parser     *gofeed.Parser
	userAgent  string
	timeout    time.Duration
}

func NewFeedSource(next Gateway, feedURL string, opts ...ClientOption) *FeedSource {
	// Reuse the client options so both sources share transport settings.
	c := NewClient("", opts...)

	return &FeedSource{
		next:       next,
		feedURL:    feedURL,
		httpClient: c.httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  c.userAgent,
		timeout:    c.timeout,
	}
}

func (s *FeedSource) Fetch(ctx context.Context, kind content.Kind) ([]content.Record, error) {
	if kind != content.KindBlog {
		return s.next.Fetch(ctx, kind)
	}

	data, err := s.fetchFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blog feed: %w", err)
	}

	return s.Parse(data)
}

// Parse maps feed entries to blog records. Entries in a public feed are
// published by definition.
func (s *FeedSource) Parse(data []byte) ([]content.Record, error) {
	feed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	records := make([]content.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		record := content.Record{
			"id":        cmp.Or(item.GUID, item.Link),
			"title":     item.Title,
			"author":    extractAuthor(item),
			"published": true,
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published != nil {
			stamp := published.UTC().Format(time.RFC3339)
			record["created_at"] = stamp
			record["published_at"] = stamp
		}

		records = append(records, record)
	}

	return records, nil
}

func (s *FeedSource) fetchFeed(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func extractAuthor(item *gofeed.Item) string {
	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if name := cmp.Or(strings.TrimSpace(author.Name), strings.TrimSpace(author.Email)); name != "" {
			return name
		}
	}
	if item.Author != nil {
		return cmp.Or(strings.TrimSpace(item.Author.Name), strings.TrimSpace(item.Author.Email))
	}
	return ""
}

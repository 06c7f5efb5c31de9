package feeds_test

import (
	"context"
	"errors"
	"fmt"
	"html"
	"newsbot/feeds"
	"newsbot/models"
	"strings"
	"sync"
)

// rssDocument renders items as an RSS 2.0 document. Items with an empty
// title or link omit the element.
func rssDocument(items ...models.Item) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>A test RSS feed</description>
`)
	for _, item := range items {
		b.WriteString("    <item>\n")
		if item.Title != "" {
			fmt.Fprintf(&b, "      <title>%s</title>\n", html.EscapeString(item.Title))
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "      <link>%s</link>\n", html.EscapeString(item.Link))
		}
		b.WriteString("    </item>\n")
	}
	b.WriteString("  </channel>\n</rss>\n")
	return []byte(b.String())
}

type staticSource struct {
	data []byte
	err  error
}

func (s staticSource) Fetch(context.Context, string) ([]byte, error) {
	return s.data, s.err
}

// recordingStore wraps a dedup store, counts lookups and fails Record for
// the configured titles
type recordingStore struct {
	mu       sync.Mutex
	inner    feeds.DedupStore
	failFor  map[string]bool
	lookups  []string
	recorded []string
}

func (s *recordingStore) IsNew(ctx context.Context, title string) bool {
	s.mu.Lock()
	s.lookups = append(s.lookups, title)
	s.mu.Unlock()
	return s.inner.IsNew(ctx, title)
}

func (s *recordingStore) Record(ctx context.Context, title string, delay int) error {
	if s.failFor[title] {
		return errors.New("write refused")
	}
	s.mu.Lock()
	s.recorded = append(s.recorded, title)
	s.mu.Unlock()
	return s.inner.Record(ctx, title, delay)
}

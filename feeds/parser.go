package feeds

import (
	"bytes"
	"fmt"
	"newsbot/models"
	"strings"

	"github.com/mmcdole/gofeed/rss"
)

// ParseError is returned when fetched bytes are not a well-formed RSS document
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parse turns an RSS document into items, in feed order. Items without a
// title are kept with an empty Title so callers decide what to do with them.
func Parse(data []byte) ([]models.Item, error) {
	parser := rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	items := make([]models.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		items = append(items, models.Item{
			Title: strings.TrimSpace(entry.Title),
			Link:  strings.TrimSpace(entry.Link),
		})
	}

	return items, nil
}

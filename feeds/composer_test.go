package feeds_test

import (
	"fmt"
	"newsbot/feeds"
	"newsbot/models"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func allNew(string) bool { return true }

// itemOfSize returns an item whose fragment is exactly size characters long.
// size must be at least 46.
func itemOfSize(n int, size int) models.Item {
	link := fmt.Sprintf("https://example.com/posts/%02d", n)
	item := models.Item{Link: link, Title: "x"}
	padding := size - utf8.RuneCountInString(feeds.Fragment(item)) + 1
	item.Title = fmt.Sprintf("%02d", n) + strings.Repeat("t", padding-2)
	return item
}

func messageLength(items []models.Item, accepted []string) int {
	byTitle := make(map[string]models.Item)
	for _, item := range items {
		byTitle[item.Title] = item
	}
	total := 0
	for _, title := range accepted {
		total += utf8.RuneCountInString(feeds.Fragment(byTitle[title]))
	}
	return total
}

func TestFragment(t *testing.T) {
	fragment := feeds.Fragment(models.Item{Title: "Tom & Jerry <3", Link: "https://example.com/?a=1&b=2"})
	assert.Equal(t, "<a href=\"https://example.com/?a=1&amp;b=2\">Tom &amp; Jerry &lt;3</a>\n", fragment)
}

func TestComposeEmpty(t *testing.T) {
	message, accepted := feeds.Compose(nil, feeds.DefaultMessageLimit, allNew)
	assert.Equal(t, "", message)
	assert.Empty(t, accepted)
}

func TestComposeSkipsMissingTitle(t *testing.T) {
	items := []models.Item{
		{Link: "https://example.com/untitled"},
		{Title: "Titled", Link: "https://example.com/titled"},
	}

	var asked []string
	message, accepted := feeds.Compose(items, feeds.DefaultMessageLimit, func(title string) bool {
		asked = append(asked, title)
		return true
	})

	assert.Equal(t, []string{"Titled"}, accepted)
	assert.Equal(t, []string{"Titled"}, asked)
	assert.Equal(t, feeds.Fragment(items[1]), message)
}

func TestComposeFiltersSeenItems(t *testing.T) {
	items := []models.Item{
		{Title: "Old", Link: "https://example.com/old"},
		{Title: "New", Link: "https://example.com/new"},
	}

	message, accepted := feeds.Compose(items, feeds.DefaultMessageLimit, func(title string) bool {
		return title != "Old"
	})

	assert.Equal(t, []string{"New"}, accepted)
	assert.Equal(t, feeds.Fragment(items[1]), message)
}

func TestComposeFirstFitInOrder(t *testing.T) {
	items := []models.Item{
		itemOfSize(1, 120),
		itemOfSize(2, 150), // would overflow, skipped
		itemOfSize(3, 100),
		itemOfSize(4, 50), // would overflow after item 3
	}

	var asked []string
	message, accepted := feeds.Compose(items, 250, func(title string) bool {
		asked = append(asked, title)
		return true
	})

	assert.Equal(t, []string{items[0].Title, items[2].Title}, accepted)
	assert.Equal(t, accepted, asked, "dedup is only consulted for items that fit")
	assert.Equal(t, 220, utf8.RuneCountInString(message))
}

func TestComposeSkipsDuplicateTitles(t *testing.T) {
	items := []models.Item{
		{Title: "Same", Link: "https://example.com/a"},
		{Title: "Same", Link: "https://example.com/b"},
	}

	message, accepted := feeds.Compose(items, feeds.DefaultMessageLimit, allNew)

	assert.Equal(t, []string{"Same"}, accepted)
	assert.Equal(t, feeds.Fragment(items[0]), message)
}

func TestComposeBudget(t *testing.T) {
	tests := []struct {
		name         string
		count        int
		fragmentSize int
		limit        int
		expected     int
	}{
		{name: "25 items of 150 all fit", count: 25, fragmentSize: 150, limit: 4096, expected: 25},
		{name: "30 items of 150 stop at 27", count: 30, fragmentSize: 150, limit: 4096, expected: 27},
		{name: "25 items of 200 stop at 20", count: 25, fragmentSize: 200, limit: 4096, expected: 20},
		{name: "exact fit", count: 4, fragmentSize: 100, limit: 400, expected: 4},
		{name: "nothing fits", count: 3, fragmentSize: 100, limit: 99, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]models.Item, tt.count)
			for i := range items {
				items[i] = itemOfSize(i+1, tt.fragmentSize)
			}

			message, accepted := feeds.Compose(items, tt.limit, allNew)
			length := utf8.RuneCountInString(message)

			assert.Len(t, accepted, tt.expected)
			assert.LessOrEqual(t, length, tt.limit)
			assert.Equal(t, tt.expected*tt.fragmentSize, length)
			assert.Equal(t, length, messageLength(items, accepted))
		})
	}
}

func TestComposeCountsCharacters(t *testing.T) {
	item := models.Item{Title: "Blåbær og rødgrøt", Link: "https://example.com/æøå"}
	size := utf8.RuneCountInString(feeds.Fragment(item))

	_, accepted := feeds.Compose([]models.Item{item}, size, allNew)
	assert.Equal(t, []string{item.Title}, accepted)
}

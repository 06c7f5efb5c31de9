package feeds_test

import (
	"errors"
	"newsbot/feeds"
	"newsbot/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsFeedOrder(t *testing.T) {
	data := rssDocument(
		models.Item{Title: "Third", Link: "https://example.com/3"},
		models.Item{Title: "First", Link: "https://example.com/1"},
		models.Item{Title: "Second", Link: "https://example.com/2"},
	)

	items, err := feeds.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []models.Item{
		{Title: "Third", Link: "https://example.com/3"},
		{Title: "First", Link: "https://example.com/1"},
		{Title: "Second", Link: "https://example.com/2"},
	}, items)
}

func TestParseMissingFields(t *testing.T) {
	data := rssDocument(
		models.Item{Link: "https://example.com/untitled"},
		models.Item{Title: "No link"},
	)

	items, err := feeds.Parse(data)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.False(t, items[0].HasTitle())
	assert.Equal(t, "https://example.com/untitled", items[0].Link)
	assert.Equal(t, "No link", items[1].Title)
	assert.Equal(t, "", items[1].Link)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "not xml", data: "not xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feeds.Parse([]byte(tt.data))
			var parseErr *feeds.ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

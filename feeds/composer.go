package feeds

import (
	"fmt"
	"html"
	"newsbot/models"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// DefaultMessageLimit is the character budget of one composed message
const DefaultMessageLimit = 4096

// Fragment renders one item as an HTML link line
func Fragment(item models.Item) string {
	return fmt.Sprintf("<a href=\"%s\">%s</a>\n", html.EscapeString(item.Link), html.EscapeString(item.Title))
}

// Compose walks items in feed order and appends the fragment of every new
// item that still fits in limit characters. An item that would overflow the
// budget is skipped and the walk goes on; items are never reordered to fit.
// isNew is only consulted for items that fit.
func Compose(items []models.Item, limit int, isNew func(title string) bool) (string, []string) {
	var message strings.Builder
	var accepted []string
	length := 0
	taken := make(map[string]struct{})

	for _, item := range items {
		if !item.HasTitle() {
			log.WithFields(log.Fields{
				"link": item.Link,
			}).Warn("Skipping feed item without title")
			continue
		}

		if _, ok := taken[item.Title]; ok {
			continue
		}

		fragment := Fragment(item)
		size := utf8.RuneCountInString(fragment)
		if length+size > limit {
			log.WithFields(log.Fields{
				"title":  item.Title,
				"length": size,
			}).Debug("Item does not fit in message")
			continue
		}

		if !isNew(item.Title) {
			continue
		}

		message.WriteString(fragment)
		length += size
		accepted = append(accepted, item.Title)
		taken[item.Title] = struct{}{}
	}

	return message.String(), accepted
}

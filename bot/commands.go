package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const (
	helpText = `These commands are supported:
/help: display this text.
/news: get the news published since the last delivery.`
	noNewsText = "No news."
)

// Listen answers commands from updates until ctx is cancelled or the
// channel is closed
func (c *Client) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel, trigger NewsTrigger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := c.HandleUpdate(ctx, update, trigger); err != nil {
				log.WithError(err).Error("Failed to answer command")
			}
		}
	}
}

// HandleUpdate answers a single update. Anything but a known command is
// ignored.
func (c *Client) HandleUpdate(ctx context.Context, update tgbotapi.Update, trigger NewsTrigger) error {
	message := update.Message
	if message == nil || message.Chat == nil || !message.IsCommand() {
		return nil
	}

	log.WithFields(log.Fields{
		"chat":    message.Chat.ID,
		"command": message.Command(),
	}).Info("Received command")

	switch message.Command() {
	case "help":
		return c.reply(ctx, message, helpText, false)
	case "news":
		return c.replyNews(ctx, message, trigger)
	default:
		return nil
	}
}

func (c *Client) replyNews(ctx context.Context, message *tgbotapi.Message, trigger NewsTrigger) error {
	hasNews := false
	var errs []error
	for _, siteResult := range trigger.All(ctx) {
		if siteResult.Err != nil {
			log.WithFields(log.Fields{
				"site":  siteResult.Result.Site,
				"error": siteResult.Err,
			}).Warn("Site failed during news command")
			continue
		}
		if siteResult.Result.Empty() {
			continue
		}
		hasNews = true
		if err := c.reply(ctx, message, siteResult.Result.Message, true); err != nil {
			errs = append(errs, fmt.Errorf("site %s: %w", siteResult.Result.Site, err))
		}
	}

	if !hasNews {
		return c.reply(ctx, message, noNewsText, false)
	}
	return errors.Join(errs...)
}

func (c *Client) reply(ctx context.Context, to *tgbotapi.Message, text string, html bool) error {
	msg := tgbotapi.NewMessage(to.Chat.ID, text)
	if html {
		msg = newsMessage(to.Chat.ID, text)
	}
	msg.ReplyToMessageID = to.MessageID
	return c.send(ctx, msg)
}

// Package bot delivers composed news messages to Telegram chats and answers
// the /help and /news commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"newsbot/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_telegram_messages_sent_total",
		Help: "Messages sent to Telegram",
	})

	sendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_telegram_send_errors_total",
		Help: "Messages Telegram refused or that could not be sent",
	})
)

// Telegram allows about 30 messages per second across all chats
const messagesPerSecond = 25

// Sender is the part of the Telegram API the client uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// DeliveryError reports a message that could not be delivered to one chat
type DeliveryError struct {
	Chat  int64
	Cause error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to chat %d: %v", e.Chat, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

type Client struct {
	sender  Sender
	limiter *rate.Limiter
}

func NewClient(sender Sender) *Client {
	return &Client{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
	}
}

// Connect authenticates against the Telegram Bot API
func Connect(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	log.WithFields(log.Fields{
		"username": api.Self.UserName,
	}).Info("Connected to Telegram")
	return api, nil
}

// Deliver sends text to every chat. A failing chat does not stop delivery
// to the others; all failures are returned joined.
func (c *Client) Deliver(ctx context.Context, chats []int64, text string) error {
	var errs []error
	for _, chat := range lo.Uniq(chats) {
		if err := c.send(ctx, newsMessage(chat, text)); err != nil {
			errs = append(errs, &DeliveryError{Chat: chat, Cause: err})
		}
	}
	return errors.Join(errs...)
}

func (c *Client) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.sender.Send(msg); err != nil {
		sendErrors.Inc()
		return err
	}
	messagesSent.Inc()
	return nil
}

func newsMessage(chat int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chat, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// NewsTrigger runs the pipeline for every site on demand
type NewsTrigger interface {
	All(ctx context.Context) []models.SiteResult
}

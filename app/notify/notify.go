// Package notify delivers operator alerts to Telegram and Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"promptiq/m/v2/app/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/cenkalti/backoff.v1"
)

const sendMaxElapsedTime = 15 * time.Second

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// New picks the channels that are configured; with none it returns a Stub.
func New(cfg *config.Config) Notifier {
	var notifiers Multi
	if cfg.TelegramSystemBotToken != "" && cfg.TelegramSystemTo != "" {
		chatID, err := strconv.ParseInt(cfg.TelegramSystemTo, 10, 64)
		if err != nil {
			log.Errorf("notify: TELEGRAM_SYSTEM_TO is not a chat id: %v", err)
		} else {
			telegram, err := NewTelegram(cfg, chatID)
			if err != nil {
				log.Errorf("notify: failed to create telegram notifier: %v", err)
			} else {
				notifiers = append(notifiers, telegram)
			}
		}
	}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, NewSlack(cfg.SlackWebhookURL))
	}
	if len(notifiers) == 0 {
		log.Warn("notify: no operator channel configured, alerts are only logged")
		return &Stub{}
	}
	return notifiers
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stub keeps messages in memory.
type Stub struct {
	mu       sync.Mutex
	Messages []string
}

func (s *Stub) Notify(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Info("notify: " + message)
	s.Messages = append(s.Messages, message)
	return nil
}

func (s *Stub) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Messages...)
}

func withRetry(ctx context.Context, channel string, send func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = sendMaxElapsedTime
	attempt := 0
	var ctxErr error
	err := backoff.Retry(func() error {
		if ctxErr = ctx.Err(); ctxErr != nil {
			return nil
		}
		attempt++
		err := send()
		if err != nil {
			log.Warnf("notify: %s send attempt %d failed: %v", channel, attempt, err)
		}
		return err
	}, b)
	if err == nil {
		err = ctxErr
	}
	if err != nil {
		return fmt.Errorf("notify: %s: %w", channel, err)
	}
	return nil
}

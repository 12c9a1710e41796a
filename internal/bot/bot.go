// Package bot is the Telegram front end: a thin layer over the word store
// and the push cycle. It owns no review logic of its own.
package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordpusher/internal/database"
	"github.com/example/wordpusher/internal/push"
	"github.com/example/wordpusher/internal/review"
	"github.com/example/wordpusher/internal/store"
)

// Bot represents the Telegram bot application
type Bot struct {
	api         *tgbotapi.BotAPI
	store       *store.Store
	scheduler   *review.Scheduler
	pusher      *push.Pusher
	subscribers *database.SubscriberRepository
	adminChatID int64
}

// New creates a bot over the given collaborators
func New(token string, st *store.Store, sched *review.Scheduler, pusher *push.Pusher, subs *database.SubscriberRepository, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return &Bot{
		api:         api,
		store:       st,
		scheduler:   sched,
		pusher:      pusher,
		subscribers: subs,
		adminChatID: adminChatID,
	}, nil
}

// Start runs the long-polling loop until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	log.Printf("bot: started as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: failed to send message to %d: %v", chatID, err)
	}
}

// SendReminder tells a subscriber the scheduler delivered a batch. It is
// the scheduler.Notifier implementation.
func (b *Bot) SendReminder(chatID int64, dueCount int) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Review push sent: %d words. Check your notifications, or /due to see them here.", dueCount))
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", chatID, err)
	}
	return nil
}

// isAdmin checks the configured admin chat plus the subscriber flag
func (b *Bot) isAdmin(chatID int64) bool {
	if b.adminChatID != 0 && chatID == b.adminChatID {
		return true
	}
	if b.subscribers == nil {
		return false
	}
	sub, err := b.subscribers.Get(chatID)
	if err != nil {
		log.Printf("bot: failed to look up subscriber %d: %v", chatID, err)
		return false
	}
	return sub != nil && sub.IsAdmin
}

// today is split out so handlers share one notion of the current date
func today() time.Time {
	return time.Now()
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordpusher/internal/notify"
	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

const helpText = `Commands:
/add word - definition — add a word to the review list
/due — preview words due today (does not count as a review)
/stats — word list statistics
/hour N — get your daily reminder at hour N (0-23)
/push — trigger a review push now (admin)
/grant chat_id — make a chat an admin (admin)
/subscribers — list registered chats (admin)
/stop — pause notifications
/help — this message`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, "I only understand commands, see /help")
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "add":
		b.handleAdd(msg)
	case "due":
		b.handleDue(msg)
	case "stats":
		b.handleStats(msg)
	case "hour":
		b.handleHour(msg)
	case "push":
		b.handlePush(ctx, msg)
	case "grant":
		b.handleGrant(msg)
	case "subscribers":
		b.handleSubscribers(msg)
	case "stop":
		b.handleStop(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command, see /help")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	if b.subscribers != nil {
		if err := b.subscribers.Upsert(msg.Chat.ID, msg.From.UserName); err != nil {
			log.Printf("bot: failed to register subscriber: %v", err)
			b.reply(msg.Chat.ID, "Registration failed, try again later")
			return
		}
	}
	b.reply(msg.Chat.ID, "Registered. You will get review pushes for due words.\n\n"+helpText)
}

func (b *Bot) handleStop(msg *tgbotapi.Message) {
	if b.subscribers == nil {
		b.reply(msg.Chat.ID, "Subscriber store is not configured")
		return
	}
	if err := b.subscribers.SetEnabled(msg.Chat.ID, false); err != nil {
		log.Printf("bot: failed to disable subscriber: %v", err)
		b.reply(msg.Chat.ID, "Could not update your settings, try again later")
		return
	}
	b.reply(msg.Chat.ID, "Notifications paused. Send /start to resume.")
}

// handleAdd parses "/add word - definition" and appends through the store
func (b *Bot) handleAdd(msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	term, definition, ok := splitAddArgs(args)
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /add word - definition")
		return
	}

	rec := models.NewWordRecord(term, definition, today())
	err := b.store.AppendUnique(rec)
	switch {
	case errors.Is(err, store.ErrDuplicateTerm):
		b.reply(msg.Chat.ID, fmt.Sprintf("%q is already in the list", term))
	case errors.Is(err, store.ErrStorageUnavailable):
		b.reply(msg.Chat.ID, "The word file is busy, try again in a moment")
	case err != nil:
		log.Printf("bot: failed to add word: %v", err)
		b.reply(msg.Chat.ID, "Failed to save the word, try again later")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("Added %q", term))
	}
}

// splitAddArgs accepts "word - definition" or "word: definition"
func splitAddArgs(args string) (term, definition string, ok bool) {
	for _, sep := range []string{" - ", ": ", " – "} {
		if i := strings.Index(args, sep); i > 0 {
			term = strings.TrimSpace(args[:i])
			definition = strings.TrimSpace(args[i+len(sep):])
			return term, definition, term != "" && definition != ""
		}
	}
	return "", "", false
}

// handleDue previews the batch without advancing anything
func (b *Bot) handleDue(msg *tgbotapi.Message) {
	records, malformed, err := b.store.ReadAll()
	if err != nil {
		log.Printf("bot: failed to read store: %v", err)
		b.reply(msg.Chat.ID, "Could not read the word file, try again later")
		return
	}
	for _, diag := range malformed {
		log.Printf("bot: skipping malformed row: %v", diag)
	}

	sel := b.scheduler.Select(records, today())
	if len(sel.Words) == 0 {
		b.reply(msg.Chat.ID, "Nothing due today.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Due today (%d):\n%s", len(sel.Words), notify.FormatMessage(sel.Words)))
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	records, malformed, err := b.store.ReadAll()
	if err != nil {
		log.Printf("bot: failed to read store: %v", err)
		b.reply(msg.Chat.ID, "Could not read the word file, try again later")
		return
	}

	newWords := 0
	totalStages := 0
	for _, rec := range records {
		if rec.ReviewStage == 0 {
			newWords++
		}
		totalStages += rec.ReviewStage
	}
	avg := 0.0
	if len(records) > 0 {
		avg = float64(totalStages) / float64(len(records))
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Words: %d\nNew: %d\nReviewed: %d\nAverage stage: %.1f\nMalformed rows: %d",
		len(records), newWords, len(records)-newWords, avg, len(malformed)))
}

// handleHour parses "/hour N" and moves the chat's daily reminder
func (b *Bot) handleHour(msg *tgbotapi.Message) {
	if b.subscribers == nil {
		b.reply(msg.Chat.ID, "Subscriber store is not configured")
		return
	}
	hour, ok := parseHour(msg.CommandArguments())
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /hour N (0-23)")
		return
	}
	if err := b.subscribers.SetNotificationHour(msg.Chat.ID, hour); err != nil {
		log.Printf("bot: failed to set notification hour: %v", err)
		b.reply(msg.Chat.ID, "Could not update your settings, try again later")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Daily reminder moved to %02d:00.", hour))
}

func parseHour(args string) (int, bool) {
	hour, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// handleGrant lets an admin promote another registered chat
func (b *Bot) handleGrant(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.Chat.ID) {
		b.reply(msg.Chat.ID, "Only the admin can grant admin rights")
		return
	}
	if b.subscribers == nil {
		b.reply(msg.Chat.ID, "Subscriber store is not configured")
		return
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /grant chat_id")
		return
	}
	sub, err := b.subscribers.Get(chatID)
	if err != nil {
		log.Printf("bot: failed to look up subscriber %d: %v", chatID, err)
		b.reply(msg.Chat.ID, "Could not look up that chat, try again later")
		return
	}
	if sub == nil {
		b.reply(msg.Chat.ID, "That chat has not sent /start yet")
		return
	}
	if err := b.subscribers.SetAdmin(chatID, true); err != nil {
		log.Printf("bot: failed to grant admin: %v", err)
		b.reply(msg.Chat.ID, "Could not update that chat, try again later")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Chat %d is now an admin.", chatID))
}

// handleSubscribers lists enabled chats with their reminder hours
func (b *Bot) handleSubscribers(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.Chat.ID) {
		b.reply(msg.Chat.ID, "Only the admin can list subscribers")
		return
	}
	if b.subscribers == nil {
		b.reply(msg.Chat.ID, "Subscriber store is not configured")
		return
	}
	subs, err := b.subscribers.Enabled()
	if err != nil {
		log.Printf("bot: failed to list subscribers: %v", err)
		b.reply(msg.Chat.ID, "Could not read the subscriber list, try again later")
		return
	}
	if len(subs) == 0 {
		b.reply(msg.Chat.ID, "No enabled subscribers.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Enabled subscribers (%d):\n", len(subs))
	for _, sub := range subs {
		fmt.Fprintf(&sb, "%d @%s reminder %02d:00", sub.ChatID, sub.Username, sub.NotificationHour)
		if sub.IsAdmin {
			sb.WriteString(" admin")
		}
		sb.WriteByte('\n')
	}
	b.reply(msg.Chat.ID, sb.String())
}

// handlePush runs one full cycle on demand
func (b *Bot) handlePush(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.Chat.ID) {
		b.reply(msg.Chat.ID, "Only the admin can trigger a push")
		return
	}

	res, err := b.pusher.Run(ctx)
	switch {
	case errors.Is(err, notify.ErrDeliveryFailed):
		b.reply(msg.Chat.ID, fmt.Sprintf("Delivery failed; %d words recorded in the failure log", res.Selected))
	case err != nil:
		log.Printf("bot: push cycle failed: %v", err)
		b.reply(msg.Chat.ID, "Push failed: "+err.Error())
	case res.Selected == 0:
		b.reply(msg.Chat.ID, "Nothing due today.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("Pushed %d words, advanced %d", res.Selected, res.Advanced))
	}
}

// Package scheduler drives the push cycle periodically in serve mode and
// fans a reminder out to bot subscribers after a delivered batch.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/wordpusher/internal/database"
	"github.com/example/wordpusher/internal/push"
)

// Runner executes one push cycle
type Runner interface {
	Run(ctx context.Context) (push.Result, error)
}

// Notifier sends a chat the "your review batch went out" reminder.
// The bot implements it; serve mode without a bot runs with a nil one.
type Notifier interface {
	SendReminder(chatID int64, dueCount int) error
}

// SubscriberSource lists the chats to remind at a given hour
type SubscriberSource interface {
	ForHour(hour int) ([]database.Subscriber, error)
}

// Scheduler triggers the runner once per hour inside the notification window
type Scheduler struct {
	scheduler   *gocron.Scheduler
	runner      Runner
	subscribers SubscriberSource
	notifier    Notifier
	startHour   int
	endHour     int
}

// New creates a scheduler. Hours are local clock hours; pushes outside
// [startHour, endHour] are skipped so the phone stays quiet at night.
// subscribers and notifier may be nil when serve mode runs without a bot.
func New(runner Runner, subscribers SubscriberSource, notifier Notifier, startHour, endHour int) *Scheduler {
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.Local),
		runner:      runner,
		subscribers: subscribers,
		notifier:    notifier,
		startHour:   startHour,
		endHour:     endHour,
	}
}

// Start begins the hourly checks without blocking
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.check)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) check() {
	s.runAt(time.Now().Hour())
}

func (s *Scheduler) runAt(hour int) {
	if hour < s.startHour || hour > s.endHour {
		log.Printf("scheduler: hour %d outside notification window (%d-%d), skipping",
			hour, s.startHour, s.endHour)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := s.runner.Run(ctx)
	if err != nil {
		log.Printf("scheduler: push cycle failed: %v", err)
		return
	}
	if res.Selected == 0 {
		return
	}
	s.remind(hour, res.Selected)
}

// remind tells every subscriber who chose this hour that a batch went out
func (s *Scheduler) remind(hour, dueCount int) {
	if s.subscribers == nil || s.notifier == nil {
		return
	}
	subs, err := s.subscribers.ForHour(hour)
	if err != nil {
		log.Printf("scheduler: failed to list subscribers: %v", err)
		return
	}
	for _, sub := range subs {
		if err := s.notifier.SendReminder(sub.ChatID, dueCount); err != nil {
			log.Printf("scheduler: failed to remind chat %d: %v", sub.ChatID, err)
		}
	}
}

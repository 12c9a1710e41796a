package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Subscriber is one Telegram chat that receives review pushes
type Subscriber struct {
	ChatID           int64     `db:"chat_id"`
	Username         string    `db:"username"`
	NotificationHour int       `db:"notification_hour"`
	Enabled          bool      `db:"enabled"`
	IsAdmin          bool      `db:"is_admin"`
	CreatedAt        time.Time `db:"created_at"`
}

// SubscriberRepository handles database operations for subscribers
type SubscriberRepository struct {
	db *DB
}

// NewSubscriberRepository creates a new repository instance
func NewSubscriberRepository(db *DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Upsert registers a chat or refreshes its username
func (r *SubscriberRepository) Upsert(chatID int64, username string) error {
	query := r.db.rebind(`
		INSERT INTO subscribers (chat_id, username)
		VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET username = excluded.username
	`)
	if _, err := r.db.Exec(query, chatID, username); err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return nil
}

// Get returns one subscriber, or nil when the chat is unknown
func (r *SubscriberRepository) Get(chatID int64) (*Subscriber, error) {
	var sub Subscriber
	query := r.db.rebind("SELECT * FROM subscribers WHERE chat_id = ?")
	err := r.db.Get(&sub, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return &sub, nil
}

// Enabled returns every subscriber with notifications switched on
func (r *SubscriberRepository) Enabled() ([]Subscriber, error) {
	var subs []Subscriber
	query := "SELECT * FROM subscribers WHERE enabled = true ORDER BY chat_id"
	if err := r.db.Select(&subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}

// ForHour returns the enabled subscribers whose reminder hour matches
func (r *SubscriberRepository) ForHour(hour int) ([]Subscriber, error) {
	var subs []Subscriber
	query := r.db.rebind("SELECT * FROM subscribers WHERE enabled = true AND notification_hour = ? ORDER BY chat_id")
	if err := r.db.Select(&subs, query, hour); err != nil {
		return nil, fmt.Errorf("failed to list subscribers for hour %d: %w", hour, err)
	}
	return subs, nil
}

// SetNotificationHour moves a chat's daily reminder to the given local hour
func (r *SubscriberRepository) SetNotificationHour(chatID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("notification hour %d out of range", hour)
	}
	query := r.db.rebind("UPDATE subscribers SET notification_hour = ? WHERE chat_id = ?")
	if _, err := r.db.Exec(query, hour, chatID); err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

// SetEnabled switches notifications on or off for a chat
func (r *SubscriberRepository) SetEnabled(chatID int64, enabled bool) error {
	query := r.db.rebind("UPDATE subscribers SET enabled = ? WHERE chat_id = ?")
	if _, err := r.db.Exec(query, enabled, chatID); err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

// SetAdmin grants or revokes the admin flag
func (r *SubscriberRepository) SetAdmin(chatID int64, admin bool) error {
	query := r.db.rebind("UPDATE subscribers SET is_admin = ? WHERE chat_id = ?")
	if _, err := r.db.Exec(query, admin, chatID); err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

// Package notify delivers a review batch to an ntfy-style push endpoint.
// It tries a chain of delivery methods, from the richest payload down to a
// plain-ASCII fallback, retrying each with exponential backoff, and records
// batches that could not be delivered at all in a failure log.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/wordpusher/pkg/models"
)

// DefaultServerURL is the public ntfy instance
const DefaultServerURL = "https://ntfy.sh"

const (
	defaultTimeout     = 15 * time.Second
	defaultBackoffBase = 1 * time.Second
	attemptsPerMethod  = 2
)

// ErrDeliveryFailed means every method in the chain was exhausted. The
// batch has been appended to the failure log by the time this is returned.
var ErrDeliveryFailed = errors.New("all delivery methods exhausted")

// Dispatcher sends review batches to one push topic
type Dispatcher struct {
	ServerURL string
	Topic     string
	// FailLogPath receives batches that no method could deliver
	FailLogPath string
	// BackoffBase is the first retry delay; it doubles per retry of the
	// same method and resets when the chain falls through to the next one
	BackoffBase time.Duration
	Client      *http.Client

	now func() time.Time
}

// New creates a dispatcher for the given topic
func New(serverURL, topic, failLogPath string) *Dispatcher {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Dispatcher{
		ServerURL:   strings.TrimRight(serverURL, "/"),
		Topic:       topic,
		FailLogPath: failLogPath,
		BackoffBase: defaultBackoffBase,
		Client:      &http.Client{Timeout: defaultTimeout},
		now:         time.Now,
	}
}

type method struct {
	name string
	send func(ctx context.Context, batch []models.WordRecord) error
}

// Deliver sends the batch as one message. An empty batch is a no-op with no
// network call. Methods are tried in order; the first 2xx short-circuits
// the chain. If every method is exhausted the batch goes to the failure log
// and ErrDeliveryFailed is returned.
func (d *Dispatcher) Deliver(ctx context.Context, batch []models.WordRecord) error {
	if len(batch) == 0 {
		return nil
	}

	methods := []method{
		{name: "json", send: d.sendJSON},
		{name: "text", send: d.sendText},
		{name: "ascii", send: d.sendASCII},
	}

	for _, m := range methods {
		for attempt := 0; attempt < attemptsPerMethod; attempt++ {
			if attempt > 0 {
				delay := d.BackoffBase << (attempt - 1)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			err := m.send(ctx, batch)
			if err == nil {
				log.Printf("notify: delivered %d words via %s method", len(batch), m.name)
				return nil
			}
			log.Printf("notify: %s method attempt %d/%d failed: %v", m.name, attempt+1, attemptsPerMethod, err)
		}
	}

	if err := appendFailureLog(d.FailLogPath, batch, d.now()); err != nil {
		log.Printf("notify: failed to write failure log: %v", err)
	} else {
		log.Printf("notify: batch of %d words recorded in %s", len(batch), d.FailLogPath)
	}
	return ErrDeliveryFailed
}

// FormatMessage joins the batch into the human-readable message body, one
// "term: definition" line per word in batch order.
func FormatMessage(batch []models.WordRecord) string {
	lines := make([]string, 0, len(batch))
	for _, rec := range batch {
		lines = append(lines, fmt.Sprintf("%s: %s", rec.Term, rec.Definition))
	}
	return strings.Join(lines, "\n")
}

// sendJSON posts a structured payload to the server root, the ntfy JSON
// publish endpoint.
func (d *Dispatcher) sendJSON(ctx context.Context, batch []models.WordRecord) error {
	payload := struct {
		Topic   string `json:"topic"`
		Message string `json:"message"`
		Title   string `json:"title"`
	}{
		Topic:   d.Topic,
		Message: FormatMessage(batch),
		Title:   fmt.Sprintf("Word review (%d words)", len(batch)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.ServerURL+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

// sendText posts the raw UTF-8 message to /{topic} with metadata in headers
func (d *Dispatcher) sendText(ctx context.Context, batch []models.WordRecord) error {
	msg := FormatMessage(batch)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.topicURL(), strings.NewReader(msg))
	if err != nil {
		return err
	}
	// Header values must stay ASCII; non-Latin titles are what broke the
	// raw publish path in the first place.
	req.Header.Set("Title", asciiOnly(fmt.Sprintf("Word review (%d words)", len(batch))))
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "brain,study")
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return d.do(req)
}

// sendASCII is the last-resort fallback: terms only, no definitions, so
// the message survives endpoints that choke on non-Latin content.
func (d *Dispatcher) sendASCII(ctx context.Context, batch []models.WordRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Word review (%d words):\n\n", len(batch))
	for i, rec := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, asciiOnly(rec.Term))
	}
	b.WriteString("\nCheck your word list for definitions.")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.topicURL(), strings.NewReader(b.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Title", fmt.Sprintf("Word review - %d words", len(batch)))
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "brain,study")
	return d.do(req)
}

func (d *Dispatcher) topicURL() string {
	return d.ServerURL + "/" + d.Topic
}

func (d *Dispatcher) do(req *http.Request) error {
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

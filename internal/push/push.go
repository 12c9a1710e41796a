// Package push runs one review cycle: read the store, select due words,
// deliver them, and only then advance their review state. The whole cycle
// runs inside a single store transaction so a concurrent append cannot be
// dropped by the rewrite.
package push

import (
	"context"
	"log"
	"time"

	"github.com/example/wordpusher/internal/notify"
	"github.com/example/wordpusher/internal/review"
	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

// Pusher wires the store, scheduler and dispatcher for one invocation.
// Construct one per run; there is no shared global handler.
type Pusher struct {
	Store      *store.Store
	Scheduler  *review.Scheduler
	Dispatcher *notify.Dispatcher

	// Now is the clock; tests pin it to a fixed day
	Now func() time.Time
}

// New creates a pusher over the given collaborators
func New(st *store.Store, sched *review.Scheduler, disp *notify.Dispatcher) *Pusher {
	return &Pusher{
		Store:      st,
		Scheduler:  sched,
		Dispatcher: disp,
		Now:        time.Now,
	}
}

// Result summarizes one cycle
type Result struct {
	Selected  int
	Delivered bool
	Advanced  int
	Malformed int
}

// Run executes one cycle. Zero due words is a successful no-op with no
// network call. A delivery failure leaves every record untouched and is
// returned as notify.ErrDeliveryFailed; the batch is already in the
// failure log by then.
func (p *Pusher) Run(ctx context.Context) (Result, error) {
	var res Result

	err := p.Store.Transact(func(records []models.WordRecord, malformed []*store.ParseError) ([]models.WordRecord, bool, error) {
		res.Malformed = len(malformed)
		for _, diag := range malformed {
			log.Printf("push: skipping malformed row: %v", diag)
		}

		today := models.Midnight(p.Now())
		sel := p.Scheduler.Select(records, today)
		res.Selected = len(sel.Words)
		if len(sel.Words) == 0 {
			log.Printf("push: no words due today")
			return nil, false, nil
		}

		// Deliver first, commit after. A crash between the two re-sends
		// the same batch next run (at-least-once), never the reverse.
		if err := p.Dispatcher.Deliver(ctx, sel.Words); err != nil {
			return nil, false, err
		}
		res.Delivered = true

		res.Advanced = review.Advance(records, sel.Positions, today)
		return records, true, nil
	})
	if err != nil {
		return res, err
	}
	if res.Advanced > 0 {
		log.Printf("push: advanced %d words", res.Advanced)
	}
	return res, nil
}

// Package reminder owns the set of pending one-shot reminders and delivers
// them from a background ticker.
package reminder

import (
	"context"
	"fmt"
	log "log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Reminder struct {
	ID      string    `json:"id"`
	Trigger time.Time `json:"trigger"`
	Message string    `json:"message"`
}

// DeliverFunc receives each due reminder exactly once. It is called from
// the ticker goroutine with no locks held.
type DeliverFunc func(Reminder)

type Scheduler struct {
	mu      sync.Mutex
	pending []Reminder

	deliver  DeliverFunc
	now      func() time.Time
	interval time.Duration
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInterval sets the ticker cadence. Defaults to one second.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func NewScheduler(deliver DeliverFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		deliver:  deliver,
		now:      time.Now,
		interval: time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add parses text into a reminder, queues it and returns the spoken
// confirmation.
func (s *Scheduler) Add(text string) string {
	at, msg := Parse(text, s.now())
	r := Reminder{
		ID:      uuid.NewString(),
		Trigger: at,
		Message: msg,
	}

	s.mu.Lock()
	s.pending = append(s.pending, r)
	s.mu.Unlock()

	log.Info("Reminder added", "id", r.ID, "at", r.Trigger.Format(time.TimeOnly), "msg", r.Message)
	return fmt.Sprintf("Reminder set: %s", msg)
}

// Tick delivers and removes every reminder whose trigger time has passed.
// Due entries are detached under the lock, so a reminder can be handed out
// at most once no matter how Tick and Add interleave.
func (s *Scheduler) Tick() []Reminder {
	now := s.now()

	s.mu.Lock()
	var due []Reminder
	keep := s.pending[:0]
	for _, r := range s.pending {
		if !now.Before(r.Trigger) {
			due = append(due, r)
		} else {
			keep = append(keep, r)
		}
	}
	clear(s.pending[len(keep):])
	s.pending = keep
	s.mu.Unlock()

	for _, r := range due {
		log.Info("Reminder due", "id", r.ID, "msg", r.Message)
		if s.deliver != nil {
			s.deliver(r)
		}
	}
	return due
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	log.Debug("Reminder ticker started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick()
		}
	}
}

// Snapshot returns a copy of the pending reminders ordered by trigger time.
func (s *Scheduler) Snapshot() []Reminder {
	s.mu.Lock()
	out := append([]Reminder(nil), s.pending...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Trigger.Before(out[j].Trigger)
	})
	return out
}

// Len reports the number of pending reminders.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

package reminder

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu  sync.Mutex
	got []Reminder
}

func (r *recorder) deliver(rem Reminder) {
	r.mu.Lock()
	r.got = append(r.got, rem)
	r.mu.Unlock()
}

func (r *recorder) delivered() []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reminder(nil), r.got...)
}

func newTestScheduler() (*Scheduler, *fakeClock, *recorder) {
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)}
	rec := &recorder{}
	return NewScheduler(rec.deliver, WithClock(clock.Now)), clock, rec
}

func TestAddAndDeliver(t *testing.T) {
	s, clock, rec := newTestScheduler()
	start := clock.Now()

	conf := s.Add("remind me in 5 seconds to drink water")
	assert.Equal(t, "Reminder set: to drink water", conf)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "to drink water", snap[0].Message)
	assert.False(t, snap[0].Trigger.Before(start.Add(5*time.Second)))
	assert.True(t, snap[0].Trigger.Before(start.Add(6*time.Second)))
	assert.NotEmpty(t, snap[0].ID)

	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		assert.Empty(t, s.Tick())
	}

	clock.Advance(time.Second)
	due := s.Tick()
	require.Len(t, due, 1)
	assert.Equal(t, "to drink water", due[0].Message)
	assert.Equal(t, 0, s.Len())
	assert.Len(t, rec.delivered(), 1)
}

func TestTickIsIdempotent(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Add("remind me in 1 second to stand up")
	s.Add("remind me in 1 minute to sit down")
	clock.Advance(2 * time.Second)

	assert.Len(t, s.Tick(), 1)
	assert.Empty(t, s.Tick())
	assert.Len(t, rec.delivered(), 1)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotOrdered(t *testing.T) {
	s, _, _ := newTestScheduler()

	s.Add("remind me in 3 minutes c")
	s.Add("remind me in 1 minute a")
	s.Add("remind me in 2 minutes b")

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].Message, snap[1].Message, snap[2].Message})

	// the snapshot is a copy
	snap[0].Message = "changed"
	assert.Equal(t, "a", s.Snapshot()[0].Message)
}

func TestConcurrentAddAndTick(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			s, clock, rec := newTestScheduler()

			const adders = 8
			perAdder := 5 + rng.Intn(20)
			delays := make([][]int, adders)
			for a := range delays {
				delays[a] = make([]int, perAdder)
				for i := range delays[a] {
					delays[a][i] = 1 + rng.Intn(30)
				}
			}

			var wg sync.WaitGroup
			for a := 0; a < adders; a++ {
				wg.Add(1)
				go func(a int) {
					defer wg.Done()
					for i, d := range delays[a] {
						s.Add(fmt.Sprintf("remind me in %d seconds msg-%d-%d", d, a, i))
					}
				}(a)
			}

			ticks := 5 + rng.Intn(10)
			var tickWG sync.WaitGroup
			tickWG.Add(1)
			go func() {
				defer tickWG.Done()
				for i := 0; i < ticks; i++ {
					clock.Advance(time.Duration(rng.Intn(3)) * time.Second)
					s.Tick()
				}
			}()

			wg.Wait()
			tickWG.Wait()

			// Everything delivered so far must have been due at delivery time,
			// and nothing may be both pending and delivered.
			seen := map[string]bool{}
			for _, r := range rec.delivered() {
				assert.False(t, seen[r.ID], "reminder %s delivered twice", r.ID)
				seen[r.ID] = true
				assert.False(t, clock.Now().Before(r.Trigger))
			}
			for _, r := range s.Snapshot() {
				assert.False(t, seen[r.ID], "reminder %s both pending and delivered", r.ID)
			}
			assert.Equal(t, adders*perAdder, len(seen)+s.Len())

			// Draining delivers the rest exactly once.
			clock.Advance(time.Minute)
			s.Tick()
			s.Tick()

			got := rec.delivered()
			assert.Len(t, got, adders*perAdder)
			ids := map[string]bool{}
			for _, r := range got {
				assert.False(t, ids[r.ID])
				ids[r.ID] = true
			}
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestRunDeliversInBackground(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	s := NewScheduler(func(r Reminder) {
		mu.Lock()
		got = append(got, r.Message)
		mu.Unlock()
		close(done)
	}, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	s.Add("remind me in 0 seconds to test")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not delivered")
	}

	cancel()
	require.NoError(t, <-errCh)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"to test"}, got)
}

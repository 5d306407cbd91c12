// Package mixer lowers other applications' PulseAudio streams while jarvis
// is listening and puts them back afterwards.
package mixer

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type Stream struct {
	ID      int
	Volume  int
	AppName string
}

// Runner executes pactl. Tests swap it out.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func pactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

type Ducker struct {
	mu       sync.Mutex
	active   bool
	self     map[string]bool
	original map[int]int
	factor   float64
	fade     time.Duration
	run      Runner
}

// NewDucker scales foreign streams to percent of their volume. Streams whose
// application.name is in self are left alone.
func NewDucker(percent int, fade time.Duration, self ...string) *Ducker {
	percent = max(0, min(percent, 100))
	d := &Ducker{
		self:     make(map[string]bool, len(self)),
		original: make(map[int]int),
		factor:   float64(percent) / 100,
		fade:     fade,
		run:      pactl,
	}
	for _, s := range self {
		d.self[s] = true
	}
	return d
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int, len(streams))
	var fades []fade
	for _, s := range streams {
		d.original[s.ID] = s.Volume
		to := int(math.Round(float64(s.Volume) * d.factor))
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	d.active = true
	return d.apply(ctx, fades)
}

func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok {
			// appeared after Duck
			continue
		}
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
	}

	d.original = make(map[int]int)
	d.active = false
	return d.apply(ctx, fades)
}

func (d *Ducker) list(ctx context.Context) ([]Stream, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	var res []Stream
	for _, s := range ParseSinkInputs(string(out)) {
		if !d.self[s.AppName] {
			res = append(res, s)
		}
	}
	return res, nil
}

type fade struct {
	id, from, to int
}

// apply steps every stream from its current to its target volume over the
// fade duration, or sets it at once when there is no fade.
func (d *Ducker) apply(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const stepEvery = 10 * time.Millisecond
	steps := max(1, int(d.fade/stepEvery))
	if d.fade <= 0 {
		steps = 1
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return err
			}
		}
		if i < steps {
			time.Sleep(d.fade / time.Duration(steps))
		}
	}
	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = max(0, min(percent, maxVolume))
	_, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	if err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

// ParseSinkInputs reads `pactl list sink-inputs` output.
func ParseSinkInputs(text string) []Stream {
	blocks := strings.Split(text, "Sink Input #")
	var res []Stream

	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		s := Stream{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && s.AppName == "" {
				s.AppName = strings.Trim(rest, `"`)
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

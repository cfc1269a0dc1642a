package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects events per path and hands them over in one batch once
// no new event arrived for the window, or as soon as maxBatch paths are
// pending.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	// gen invalidates timers that fired while a newer event was being added.
	gen     uint64
	stopped bool
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]FileEvent),
	}
}

func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if prev, ok := d.pending[event.Path]; ok {
		event = merge(prev, event)
	}
	d.pending[event.Path] = event
	d.gen++

	var batch []FileEvent
	if len(d.pending) >= d.maxBatch {
		batch = d.takeLocked()
	} else {
		gen := d.gen
		if d.timer != nil {
			d.timer.Stop()
		}
		d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	}
	d.mu.Unlock()

	d.deliver(batch)
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()

	d.deliver(batch)
}

// takeLocked empties the pending set and returns it sorted by path.
func (d *Debouncer) takeLocked() []FileEvent {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) == 0 {
		return nil
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.pending = make(map[string]FileEvent)
	return batch
}

func (d *Debouncer) deliver(batch []FileEvent) {
	if len(batch) > 0 && d.onFlush != nil {
		d.onFlush(batch)
	}
}

func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop drops pending events. Add is a no-op afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.takeLocked()
}

package events

import (
	"context"
	"strconv"
	"sync"
)

// Entry is an event tagged with its position in a Buffer.
type Entry struct {
	ID    string `json:"event_id"`
	Event Event  `json:"event"`
}

// Buffer keeps the most recent events in memory and fans new ones out to
// subscribers. It is a Publisher, so it can sit next to the log and redis
// publishers in a Multi.
type Buffer struct {
	mu       sync.Mutex
	nextID   int64
	max      int
	entries  []Entry
	watchers map[chan Entry]struct{}
	closed   bool
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 500
	}
	return &Buffer{
		max:      max,
		watchers: map[chan Entry]struct{}{},
	}
}

// Publish appends ev. Slow subscribers miss events rather than block the
// publisher; they can catch up through ReplayAfter.
func (b *Buffer) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.nextID++
	e := Entry{ID: strconv.FormatInt(b.nextID, 10), Event: ev}
	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// ReplayAfter returns the buffered entries newer than lastID. An empty or
// unparseable id replays everything still buffered.
func (b *Buffer) ReplayAfter(lastID string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, err := strconv.ParseInt(lastID, 10, 64)
	if lastID == "" || err != nil {
		return append([]Entry(nil), b.entries...)
	}
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		id, _ := strconv.ParseInt(e.ID, 10, 64)
		if id > last {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to limit of the newest entries, oldest first.
func (b *Buffer) Recent(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := 0
	if limit > 0 && len(b.entries) > limit {
		start = len(b.entries) - limit
	}
	return append([]Entry(nil), b.entries[start:]...)
}

func (b *Buffer) Subscribe() chan Entry {
	ch := make(chan Entry, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

// Close ends every subscription. Later publishes are dropped.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}

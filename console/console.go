// Package console implements a bounded, append-only buffer of console
// lines with monotonically increasing ids. Clients poll it incrementally
// with the id of the last line they have seen.
package console

import (
	"sync"
	"time"
)

// Origin describes where a buffered line came from.
type Origin string

const (
	OriginStdout  Origin = "stdout"
	OriginStderr  Origin = "stderr"
	OriginSystem  Origin = "system"
	OriginCommand Origin = "command"
)

// Entry is a single line of console output. Entries are immutable once
// appended.
type Entry struct {
	ID        uint64    `json:"id"`
	Origin    Origin    `json:"origin"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Buffer is a bounded ring of entries. Once the capacity is reached the
// oldest entries are evicted, but ids keep increasing for the lifetime of
// the buffer. It is safe for concurrent use.
type Buffer struct {
	capacity   int
	generation uint64

	lock     sync.RWMutex
	entries  []Entry
	head     int
	count    int
	lastID   uint64
	observer func(Entry)
}

// NewBuffer returns a buffer holding at most capacity entries. A
// non-positive capacity defaults to 1000.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}

	return &Buffer{
		capacity:   capacity,
		generation: uint64(time.Now().UnixNano()),
		entries:    make([]Entry, capacity),
	}
}

// Append adds a line to the buffer and returns its id. Ids start at 1 and
// are strictly increasing. Append only blocks for the duration of the
// buffer lock.
func (b *Buffer) Append(origin Origin, text string) uint64 {
	b.lock.Lock()

	b.lastID++

	entry := Entry{
		ID:        b.lastID,
		Origin:    origin,
		Text:      text,
		Timestamp: time.Now(),
	}

	if b.count < b.capacity {
		b.entries[(b.head+b.count)%b.capacity] = entry
		b.count++
	} else {
		b.entries[b.head] = entry
		b.head = (b.head + 1) % b.capacity
	}

	observer := b.observer

	b.lock.Unlock()

	if observer != nil {
		observer(entry)
	}

	return entry.ID
}

// OnAppend registers a single observer that is called for every appended
// entry, outside of the buffer lock. Observation order between concurrent
// appends is not guaranteed.
func (b *Buffer) OnAppend(fn func(Entry)) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.observer = fn
}

// ReadSince returns all retained entries with an id greater than lastID in
// increasing id order. A lastID older than the oldest retained entry is not
// an error; whatever is still retained is returned and the caller has to
// tolerate the gap.
func (b *Buffer) ReadSince(lastID uint64) []Entry {
	b.lock.RLock()
	defer b.lock.RUnlock()

	entries := []Entry{}

	for i := 0; i < b.count; i++ {
		entry := b.entries[(b.head+i)%b.capacity]
		if entry.ID > lastID {
			entries = append(entries, entry)
		}
	}

	return entries
}

// LastID returns the id of the most recently appended entry, or 0 if
// nothing has been appended yet.
func (b *Buffer) LastID() uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.lastID
}

// Generation identifies this buffer instance. Ids restart when the panel
// process restarts; clients that cache a poll cursor can compare the
// generation to detect this.
func (b *Buffer) Generation() uint64 {
	return b.generation
}

// Len returns the number of currently retained entries.
func (b *Buffer) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.count
}

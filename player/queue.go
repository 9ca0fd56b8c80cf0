package player

import (
	"sync"
)

// QueueManager holds the ordered play queue and the cursor into it.
// The order is whatever the caller loaded; the queue never reorders.
type QueueManager struct {
	mu      sync.Mutex
	tracks  []Track
	current int // index into tracks, -1 when no track is selected
}

// NewQueueManager creates an empty queue.
func NewQueueManager() *QueueManager {
	return &QueueManager{current: -1}
}

// Load replaces the queue contents and clears the cursor. The previous
// selection does not survive a reload; callers re-select by id.
func (q *QueueManager) Load(tracks []Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]Track, len(tracks))
	copy(q.tracks, tracks)
	q.current = -1
}

// Select moves the cursor to the first track with the given id. When the
// id is absent the cursor is left unset.
func (q *QueueManager) Select(id string) (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tracks {
		if t.ID == id {
			q.current = i
			return t, true
		}
	}
	q.current = -1
	return Track{}, false
}

// Current returns the selected track, if any.
func (q *QueueManager) Current() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 || q.current >= len(q.tracks) {
		return Track{}, false
	}
	return q.tracks[q.current], true
}

// Next advances the cursor with wraparound and returns the new track.
// On an empty queue this is a no-op and the cursor stays unset.
func (q *QueueManager) Next() (Track, bool) {
	return q.step(1)
}

// Previous retreats the cursor with wraparound and returns the new track.
// On an empty queue this is a no-op and the cursor stays unset.
func (q *QueueManager) Previous() (Track, bool) {
	return q.step(-1)
}

func (q *QueueManager) step(delta int) (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if n == 0 {
		q.current = -1
		return Track{}, false
	}

	if q.current < 0 {
		// No selection yet: next starts at the head, previous at the tail.
		if delta > 0 {
			q.current = 0
		} else {
			q.current = n - 1
		}
	} else {
		q.current = (q.current + delta + n) % n
	}
	return q.tracks[q.current], true
}

// Len reports the number of queued tracks.
func (q *QueueManager) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Tracks returns a snapshot of the queue contents.
func (q *QueueManager) Tracks() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

package player

import (
	"github.com/cockroachdb/errors"
)

// Session is the user-facing playback control surface: a thin shell over
// the orchestrator and the queue it plays from.
type Session struct {
	orch  *Orchestrator
	queue *QueueManager
}

// NewSession wraps an orchestrator and its queue.
func NewSession(orch *Orchestrator, queue *QueueManager) *Session {
	return &Session{orch: orch, queue: queue}
}

// Load replaces the play queue. The caller decides the order; it is
// preserved as given.
func (s *Session) Load(tracks []Track) {
	s.queue.Load(tracks)
}

// PlayTrack selects the queued track with the given id and plays it.
func (s *Session) PlayTrack(id string) error {
	track, ok := s.queue.Select(id)
	if !ok {
		return errors.WithDetailf(ErrTrackNotFound, "id %s", id)
	}
	s.orch.Play(track)
	return nil
}

// Pause suspends playback. No-op unless something is playing.
func (s *Session) Pause() { s.orch.Pause() }

// Resume continues paused playback. No-op unless paused.
func (s *Session) Resume() { s.orch.Resume() }

// Stop ends playback and clears the bound track.
func (s *Session) Stop() { s.orch.Stop() }

// Next plays the next queued track, wrapping at the end.
func (s *Session) Next() { s.orch.Next() }

// Previous plays the previous queued track, wrapping at the start.
func (s *Session) Previous() { s.orch.Previous() }

// IsPlaying reports whether a track is playing or being prepared.
func (s *Session) IsPlaying() bool { return s.orch.IsPlaying() }

// CurrentTrack returns the bound track, nil when none.
func (s *Session) CurrentTrack() *Track { return s.orch.CurrentTrack() }

// Queue returns a snapshot of the queued tracks.
func (s *Session) Queue() []Track { return s.queue.Tracks() }

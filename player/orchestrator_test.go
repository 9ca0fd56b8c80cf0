package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records control calls. When gate is set, the next Prepare
// blocks on it (or its context), which lets tests hold a prepare open
// while newer actions supersede it.
type fakeEngine struct {
	mu             sync.Mutex
	gate           chan struct{}
	failErr        error
	prepared       []string
	onFinished     func()
	stops          int
	pauses         int
	resumes        int
	prepareStarted chan string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{prepareStarted: make(chan string, 8)}
}

func (e *fakeEngine) Prepare(ctx context.Context, uri string, onFinished func()) error {
	e.mu.Lock()
	gate := e.gate
	e.gate = nil // only the next prepare blocks
	fail := e.failErr
	e.mu.Unlock()

	e.prepareStarted <- uri

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail != nil {
		return fail
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	e.prepared = append(e.prepared, uri)
	e.onFinished = onFinished
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
}

func (e *fakeEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumes++
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
}

func (e *fakeEngine) finish() {
	e.mu.Lock()
	done := e.onFinished
	e.mu.Unlock()
	if done != nil {
		done()
	}
}

func (e *fakeEngine) preparedURIs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.prepared))
	copy(out, e.prepared)
	return out
}

type fakeNotifier struct {
	mu        sync.Mutex
	shown     []string
	dismissed int
}

func (n *fakeNotifier) Show(track Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, track.ID)
}

func (n *fakeNotifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed++
}

func newOrchestratorFixture(engine Engine) (*Orchestrator, *QueueManager) {
	queue := NewQueueManager()
	resolver := NewStreamResolver(nil, nil)
	return NewOrchestrator(engine, resolver, queue, time.Second), queue
}

func waitForState(t *testing.T, events <-chan Snapshot, want State) Snapshot {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap := <-events:
			if snap.State == want {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestPlayReachesPlaying(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Play(localTrack("a"))

	// Optimistic snapshot: visible before the engine reports ready.
	snap := orch.Snapshot()
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a", snap.Track.ID)
	assert.True(t, orch.IsPlaying())

	playing := waitForState(t, events, StatePlaying)
	require.NotNil(t, playing.Track)
	assert.Equal(t, "a", playing.Track.ID)
	assert.Equal(t, []string{"/music/a.mp3"}, engine.preparedURIs())
}

func TestStaleCompletionDiscarded(t *testing.T) {
	engine := newFakeEngine()
	gate := make(chan struct{})
	engine.gate = gate
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	trackX := localTrack("x")
	trackY := localTrack("y")

	orch.Play(trackX)
	require.Equal(t, "/music/x.mp3", <-engine.prepareStarted)

	// Supersede X while its prepare is still in flight.
	orch.Play(trackY)
	playing := waitForState(t, events, StatePlaying)
	require.NotNil(t, playing.Track)
	assert.Equal(t, "y", playing.Track.ID)

	// Let X's prepare drain; its completion must change nothing.
	close(gate)
	time.Sleep(50 * time.Millisecond)

	snap := orch.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "y", snap.Track.ID)
	assert.Equal(t, []string{"/music/y.mp3"}, engine.preparedURIs())
}

func TestPlayFailureTransitionsToError(t *testing.T) {
	engine := newFakeEngine()
	engine.failErr = errors.New("decoder exploded")
	notifier := &fakeNotifier{}
	orch, _ := newOrchestratorFixture(engine)
	orch.SetNotifier(notifier)
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Play(localTrack("a"))

	snap := waitForState(t, events, StateError)
	require.Error(t, snap.Err)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a", snap.Track.ID)
	assert.False(t, orch.IsPlaying())

	// The engine is released and no foreground session survives.
	assert.GreaterOrEqual(t, engine.stops, 1)
	assert.GreaterOrEqual(t, notifier.dismissed, 1)
	assert.Empty(t, notifier.shown)
}

func TestResolveFailureTransitionsToError(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	// A remote track with no catalog wired cannot resolve.
	orch.Play(Track{ID: "ghost", Kind: SourceRemote})

	snap := waitForState(t, events, StateError)
	assert.True(t, errors.Is(snap.Err, ErrTrackNotFound))
	assert.Empty(t, engine.preparedURIs())
}

func TestPauseResume(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Play(localTrack("a"))
	waitForState(t, events, StatePlaying)

	orch.Pause()
	assert.Equal(t, StatePaused, orch.Snapshot().State)
	assert.Equal(t, 1, engine.pauses)

	// Pausing when already paused is a no-op, not an error.
	orch.Pause()
	assert.Equal(t, 1, engine.pauses)

	orch.Resume()
	assert.Equal(t, StatePlaying, orch.Snapshot().State)
	assert.Equal(t, 1, engine.resumes)

	orch.Resume()
	assert.Equal(t, 1, engine.resumes)
}

func TestPauseWhenIdleIsNoop(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)

	orch.Pause()
	orch.Resume()

	assert.Equal(t, StateIdle, orch.Snapshot().State)
	assert.Equal(t, 0, engine.pauses)
	assert.Equal(t, 0, engine.resumes)
}

func TestStopTearsDown(t *testing.T) {
	engine := newFakeEngine()
	notifier := &fakeNotifier{}
	orch, _ := newOrchestratorFixture(engine)
	orch.SetNotifier(notifier)
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Play(localTrack("a"))
	waitForState(t, events, StatePlaying)
	assert.Equal(t, []string{"a"}, notifier.shown)

	orch.Stop()

	snap := orch.Snapshot()
	assert.Equal(t, StateStopped, snap.State)
	assert.Nil(t, snap.Track)
	assert.Nil(t, orch.CurrentTrack())
	assert.GreaterOrEqual(t, notifier.dismissed, 1)
}

func TestPlayAfterStopStartsFresh(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Play(localTrack("a"))
	waitForState(t, events, StatePlaying)
	orch.Stop()

	orch.Play(localTrack("b"))
	snap := waitForState(t, events, StatePlaying)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "b", snap.Track.ID)
}

func TestNextAndPreviousFollowQueue(t *testing.T) {
	engine := newFakeEngine()
	orch, queue := newOrchestratorFixture(engine)
	queue.Load([]Track{localTrack("a"), localTrack("b")})
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Next()
	snap := waitForState(t, events, StatePlaying)
	assert.Equal(t, "a", snap.Track.ID)

	orch.Next()
	snap = waitForState(t, events, StatePlaying)
	assert.Equal(t, "b", snap.Track.ID)

	// Wraparound: advancing past the tail returns to the head.
	orch.Next()
	snap = waitForState(t, events, StatePlaying)
	assert.Equal(t, "a", snap.Track.ID)

	orch.Previous()
	snap = waitForState(t, events, StatePlaying)
	assert.Equal(t, "b", snap.Track.ID)
}

func TestNextOnEmptyQueueIsNoop(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)

	orch.Next()
	orch.Previous()

	assert.Equal(t, StateIdle, orch.Snapshot().State)
	assert.Empty(t, engine.preparedURIs())
}

func TestFinishedTrackAdvancesQueue(t *testing.T) {
	engine := newFakeEngine()
	orch, queue := newOrchestratorFixture(engine)
	queue.Load([]Track{localTrack("a"), localTrack("b")})
	events, cancel := orch.Subscribe()
	defer cancel()

	orch.Next()
	waitForState(t, events, StatePlaying)

	engine.finish()

	snap := waitForState(t, events, StatePlaying)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "b", snap.Track.ID)
}

func TestFinishedWithEmptyQueueGoesIdle(t *testing.T) {
	engine := newFakeEngine()
	orch, _ := newOrchestratorFixture(engine)
	events, cancel := orch.Subscribe()
	defer cancel()

	// Played directly, not from the queue.
	orch.Play(localTrack("a"))
	waitForState(t, events, StatePlaying)

	engine.finish()

	snap := waitForState(t, events, StateIdle)
	assert.Nil(t, snap.Track)
}

func TestSessionControlSurface(t *testing.T) {
	engine := newFakeEngine()
	orch, queue := newOrchestratorFixture(engine)
	session := NewSession(orch, queue)
	events, cancel := orch.Subscribe()
	defer cancel()

	session.Load([]Track{localTrack("a"), localTrack("b")})

	require.NoError(t, session.PlayTrack("b"))
	snap := waitForState(t, events, StatePlaying)
	assert.Equal(t, "b", snap.Track.ID)
	assert.True(t, session.IsPlaying())

	err := session.PlayTrack("missing")
	assert.True(t, errors.Is(err, ErrTrackNotFound))

	session.Stop()
	assert.False(t, session.IsPlaying())
	assert.Nil(t, session.CurrentTrack())
}

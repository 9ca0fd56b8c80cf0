package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"melody/logger"
)

// State is the orchestrator's playback state.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StatePlaying
	StatePaused
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the externally visible playback state: current state and
// track, stamped with the session token of the action that produced it.
// Err is set only in StateError.
type Snapshot struct {
	State State
	Track *Track
	Token uint64
	Err   error
}

// IsPlaying reports whether audio is (or is about to be) rolling.
func (s Snapshot) IsPlaying() bool {
	return s.State == StatePlaying || s.State == StatePreparing
}

// Notifier mirrors playback into a foreground surface (system
// notification, status bar). Created on Playing, torn down on
// Stop/Error/Idle.
type Notifier interface {
	Show(track Track)
	Dismiss()
}

// Orchestrator owns the audio engine and drives the playback state
// machine. Mutating calls are serialized on an internal mutex; state
// reads go through an atomic snapshot and never block.
//
// Every play attempt gets a fresh monotonic session token. Asynchronous
// completions (engine ready, prepare failure, track finished) carry the
// token of the attempt that started them and are discarded when a newer
// action has since bumped it, so a slow prepare can never overwrite the
// state of the track that superseded it.
type Orchestrator struct {
	mu sync.Mutex

	engine         Engine
	resolver       *StreamResolver
	queue          *QueueManager
	notifier       Notifier
	prepareTimeout time.Duration

	token         uint64
	cancelPrepare context.CancelFunc

	snap atomic.Value // Snapshot

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// NewOrchestrator creates an orchestrator over the given engine, resolver
// and queue. prepareTimeout bounds resolve+prepare for one play attempt.
func NewOrchestrator(engine Engine, resolver *StreamResolver, queue *QueueManager, prepareTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		engine:         engine,
		resolver:       resolver,
		queue:          queue,
		prepareTimeout: prepareTimeout,
		subs:           make(map[int]chan Snapshot),
	}
	o.snap.Store(Snapshot{State: StateIdle})
	return o
}

// SetNotifier installs the foreground-session hook. Optional.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifier = n
}

// Play starts a new playback attempt for track. Any in-flight prepare is
// superseded; the Preparing snapshot is visible before Play returns.
func (o *Orchestrator) Play(track Track) {
	o.mu.Lock()

	o.token++
	tok := o.token
	if o.cancelPrepare != nil {
		o.cancelPrepare()
	}
	o.engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), o.prepareTimeout)
	o.cancelPrepare = cancel

	t := track
	o.publishLocked(Snapshot{State: StatePreparing, Track: &t, Token: tok})
	o.mu.Unlock()

	go o.prepare(ctx, tok, track)
}

func (o *Orchestrator) prepare(ctx context.Context, tok uint64, track Track) {
	uri, err := o.resolver.Resolve(ctx, track)
	if err == nil {
		err = o.engine.Prepare(ctx, uri, func() { o.trackFinished(tok) })
	}
	o.finishPrepare(tok, track, err)
}

func (o *Orchestrator) finishPrepare(tok uint64, track Track, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if tok != o.token {
		// Superseded by a newer action; the engine belongs to it now.
		logger.Debug("discarding stale prepare completion",
			logger.String("track", track.ID),
			logger.Uint64("token", tok))
		return
	}

	if o.cancelPrepare != nil {
		o.cancelPrepare()
		o.cancelPrepare = nil
	}

	t := track
	if err != nil {
		o.engine.Stop()
		if o.notifier != nil {
			o.notifier.Dismiss()
		}
		logger.Warn("playback failed",
			logger.String("track", track.ID),
			logger.ErrorField(err))
		o.publishLocked(Snapshot{State: StateError, Track: &t, Token: tok, Err: err})
		return
	}

	o.publishLocked(Snapshot{State: StatePlaying, Track: &t, Token: tok})
	if o.notifier != nil {
		o.notifier.Show(track)
	}
}

// trackFinished handles the engine's natural end-of-track callback:
// advance through the queue, or fall back to idle when there is nothing
// queued.
func (o *Orchestrator) trackFinished(tok uint64) {
	o.mu.Lock()
	if tok != o.token {
		o.mu.Unlock()
		return
	}

	if o.queue.Len() == 0 {
		o.token++
		o.engine.Stop()
		if o.notifier != nil {
			o.notifier.Dismiss()
		}
		o.publishLocked(Snapshot{State: StateIdle, Token: o.token})
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.Next()
}

// Pause moves Playing to Paused. Anything else is a no-op.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.Snapshot()
	if snap.State != StatePlaying {
		return
	}
	o.engine.Pause()
	snap.State = StatePaused
	o.publishLocked(snap)
}

// Resume moves Paused back to Playing. Anything else is a no-op.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.Snapshot()
	if snap.State != StatePaused {
		return
	}
	o.engine.Resume()
	snap.State = StatePlaying
	o.publishLocked(snap)
}

// Stop releases the engine, clears the bound track and tears the
// foreground session down. Pending prepares are invalidated.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.token++
	if o.cancelPrepare != nil {
		o.cancelPrepare()
		o.cancelPrepare = nil
	}
	o.engine.Stop()
	if o.notifier != nil {
		o.notifier.Dismiss()
	}
	o.publishLocked(Snapshot{State: StateStopped, Token: o.token})
}

// Next advances the queue (with wraparound) and plays the result.
// No-op on an empty queue.
func (o *Orchestrator) Next() {
	if track, ok := o.queue.Next(); ok {
		o.Play(track)
	}
}

// Previous retreats the queue (with wraparound) and plays the result.
// No-op on an empty queue.
func (o *Orchestrator) Previous() {
	if track, ok := o.queue.Previous(); ok {
		o.Play(track)
	}
}

// Snapshot returns the current playback snapshot without blocking on
// in-flight mutations.
func (o *Orchestrator) Snapshot() Snapshot {
	return o.snap.Load().(Snapshot)
}

// IsPlaying reports whether a track is playing or being prepared.
func (o *Orchestrator) IsPlaying() bool {
	return o.Snapshot().IsPlaying()
}

// CurrentTrack returns the bound track, nil when none.
func (o *Orchestrator) CurrentTrack() *Track {
	return o.Snapshot().Track
}

// Subscribe registers a playback-state observer. The returned cancel
// function must be called to release the channel. Slow observers miss
// intermediate snapshots rather than stalling playback control.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan Snapshot, 16)
	o.subs[id] = ch

	cancel := func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		if sub, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publishLocked stores the snapshot and fans it out. Callers hold o.mu,
// which is what orders snapshots for observers.
func (o *Orchestrator) publishLocked(s Snapshot) {
	o.snap.Store(s)

	o.subMu.Lock()
	for _, ch := range o.subs {
		select {
		case ch <- s:
		default:
		}
	}
	o.subMu.Unlock()
}

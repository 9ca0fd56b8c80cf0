package player

import (
	"context"
)

// Engine is the minimal audio backend contract. One orchestrator owns
// one engine; control calls are never issued concurrently.
type Engine interface {
	// Prepare loads the URI and starts playback. It blocks until audio is
	// rolling or the context is done; onFinished fires once when the
	// track plays to its natural end.
	Prepare(ctx context.Context, uri string, onFinished func()) error

	// Pause suspends output. Safe to call when nothing is playing.
	Pause()

	// Resume continues paused output. Safe to call when nothing is paused.
	Resume()

	// Stop tears playback down and releases the decoded stream.
	Stop()
}

//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"context"
)

// AudioAvailable indicates whether this build can produce sound.
// Playback needs cgo for the native audio libraries.
const AudioAvailable = false

// stubEngine is the no-op backend for builds without audio support.
// Orchestration still works; nothing is heard.
type stubEngine struct{}

// NewEngine creates the no-op audio engine.
func NewEngine() Engine {
	return &stubEngine{}
}

func (*stubEngine) Prepare(ctx context.Context, uri string, onFinished func()) error {
	return ctx.Err()
}

func (*stubEngine) Pause() {}

func (*stubEngine) Resume() {}

func (*stubEngine) Stop() {}

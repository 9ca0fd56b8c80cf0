//go:build (linux && cgo) || windows || darwin

package player

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether this build can produce sound.
const AudioAvailable = true

// beepEngine plays audio through the beep speaker. Remote URIs are
// fetched fully before decoding; a personal library's tracks fit in
// memory and seeking stays trivial.
type beepEngine struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate
	ctrl        *beep.Ctrl
	streamer    beep.StreamSeekCloser

	httpClient *http.Client
}

// NewEngine creates the beep-backed audio engine.
func NewEngine() Engine {
	return &beepEngine{
		sampleRate: beep.SampleRate(44100),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (e *beepEngine) Prepare(ctx context.Context, uri string, onFinished func()) error {
	data, err := e.fetch(ctx, uri)
	if err != nil {
		return err
	}

	// Local reads and decoding do not observe ctx, so a superseded
	// prepare can reach this point long after cancellation.
	if err := ctx.Err(); err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return errors.Wrap(err, "decode audio")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The check must precede stopLocked: once cancelled, the engine
	// belongs to the newer play request, and tearing playback down here
	// would silence the track that superseded this one.
	if err := ctx.Err(); err != nil {
		streamer.Close()
		return err
	}

	e.stopLocked()

	if !e.initialized {
		if err := speaker.Init(e.sampleRate, e.sampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return errors.Wrap(err, "init speaker")
		}
		e.initialized = true
	}

	e.streamer = streamer
	resampled := beep.Resample(4, format.SampleRate, e.sampleRate, streamer)
	e.ctrl = &beep.Ctrl{Streamer: resampled}

	speaker.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		if onFinished != nil {
			// Separate goroutine: the callback may start the next track,
			// which would deadlock inside the speaker lock.
			go onFinished()
		}
	})))

	return nil
}

func (e *beepEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (e *beepEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = false
		speaker.Unlock()
	}
}

func (e *beepEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *beepEngine) stopLocked() {
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.ctrl = nil
}

// fetch loads the URI's bytes: HTTP for remote streams, the filesystem
// for library tracks.
func (e *beepEngine) fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build stream request")
		}
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "fetch stream")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("fetch stream: unexpected status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read stream body")
		}
		return data, nil
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, errors.Wrap(err, "read local track")
	}
	return data, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

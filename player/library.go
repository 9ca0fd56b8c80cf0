package player

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"melody/core/ingest"
	"melody/logger"
)

// Library scans a music directory, keeps tagged track entries in memory
// and refreshes them (debounced) when the directory changes.
type Library struct {
	root    string
	watcher *fsnotify.Watcher

	mu     sync.RWMutex
	tracks []Track
	byID   map[string]Track

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewLibrary scans root and starts watching it for changes.
func NewLibrary(root string, debounce time.Duration) (*Library, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	lib := &Library{
		root:         root,
		watcher:      watcher,
		byID:         make(map[string]Track),
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	lib.addWatchRecursive(root)

	if err := lib.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	lib.wg.Add(1)
	go lib.run()

	return lib, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)

		l.refreshMu.Lock()
		if l.refreshTimer != nil {
			l.refreshTimer.Stop()
			l.refreshTimer = nil
		}
		l.refreshMu.Unlock()

		l.closeErr = l.watcher.Close()
		l.wg.Wait()
	})
	return l.closeErr
}

// Tracks returns a snapshot of the library, ordered by relative path.
func (l *Library) Tracks() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Find looks a track up by id.
func (l *Library) Find(id string) (Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.byID[id]
	return t, ok
}

func (l *Library) run() {
	defer l.wg.Done()

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.handleEvent(event)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("library watcher error", logger.ErrorField(err))
		case <-l.done:
			return
		}
	}
}

func (l *Library) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			l.addWatchRecursive(event.Name)
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		if ingest.SupportedFormat(event.Name) || event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			l.scheduleRefresh()
		}
	}
}

func (l *Library) refresh() error {
	var tracks []Track

	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("library walk error", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		if d.IsDir() || !ingest.SupportedFormat(path) {
			return nil
		}

		track, err := l.buildTrack(path)
		if err != nil {
			logger.Warn("skipping unreadable file", logger.String("path", path), logger.ErrorField(err))
			return nil
		}

		tracks = append(tracks, track)
		return nil
	})
	if err != nil {
		return err
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].LocalPath < tracks[j].LocalPath
	})

	byID := make(map[string]Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	l.mu.Lock()
	l.tracks = tracks
	l.byID = byID
	l.mu.Unlock()

	logger.Info("library refreshed", logger.Int("tracks", len(tracks)))
	return nil
}

// buildTrack reads a file and derives its queue entry. The id is the
// root-relative path so it stays stable across rescans.
func (l *Library) buildTrack(path string) (Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Track{}, err
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	meta := ingest.Extract(data, filepath.Base(path))
	return NewLocalTrack(
		"local:"+filepath.ToSlash(rel),
		path,
		meta.Title,
		meta.Artist,
		meta.Album,
		meta.Duration,
		meta.FileSize,
	), nil
}

func (l *Library) scheduleRefresh() {
	select {
	case <-l.done:
		return
	default:
	}

	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	if l.refreshTimer != nil {
		l.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(l.refreshDelay, func() {
		if err := l.refresh(); err != nil {
			logger.Warn("library refresh failed", logger.ErrorField(err))
		}

		l.refreshMu.Lock()
		if l.refreshTimer == timer {
			l.refreshTimer = nil
		}
		l.refreshMu.Unlock()
	})

	l.refreshTimer = timer
}

func (l *Library) addWatchRecursive(path string) {
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("library walk error", logger.String("path", p), logger.ErrorField(err))
			return nil
		}
		if d.IsDir() {
			if err := l.watcher.Add(p); err != nil {
				logger.Warn("library watch add failed", logger.String("path", p), logger.ErrorField(err))
			}
		}
		return nil
	})
}

package player

import (
	"context"

	"github.com/cockroachdb/errors"

	"melody/client"
)

// ErrTrackNotFound means no source can play the requested track.
var ErrTrackNotFound = errors.New("track not found")

// LocalIndex looks tracks up in the local library.
type LocalIndex interface {
	Find(id string) (Track, bool)
}

// RemoteCatalog resolves a catalog id to its stream URL.
type RemoteCatalog interface {
	StreamURL(ctx context.Context, id string) (string, error)
}

// StreamResolver turns a track into a playable URI: the local library
// wins, the catalog is the fallback. Either source may be absent.
type StreamResolver struct {
	local  LocalIndex
	remote RemoteCatalog
}

// NewStreamResolver creates a resolver over the given sources. Both are
// optional; a nil source is simply skipped.
func NewStreamResolver(local LocalIndex, remote RemoteCatalog) *StreamResolver {
	return &StreamResolver{local: local, remote: remote}
}

// Resolve returns the URI to hand to the audio engine. It fails with
// ErrTrackNotFound when neither source knows the id, or the catalog entry
// has no stored object yet.
func (r *StreamResolver) Resolve(ctx context.Context, track Track) (string, error) {
	if track.Kind == SourceLocal && track.LocalPath != "" {
		return track.LocalPath, nil
	}
	if track.StreamURL != "" {
		return track.StreamURL, nil
	}

	if r.local != nil {
		if local, ok := r.local.Find(track.ID); ok && local.LocalPath != "" {
			return local.LocalPath, nil
		}
	}

	if r.remote != nil {
		url, err := r.remote.StreamURL(ctx, track.ID)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return "", errors.WithDetailf(ErrTrackNotFound, "id %s", track.ID)
			}
			return "", errors.Wrap(err, "resolve stream URL")
		}
		if url != "" {
			return url, nil
		}
	}

	return "", errors.WithDetailf(ErrTrackNotFound, "id %s", track.ID)
}

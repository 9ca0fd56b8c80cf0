package player

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melody/client"
)

type fakeIndex map[string]Track

func (f fakeIndex) Find(id string) (Track, bool) {
	t, ok := f[id]
	return t, ok
}

type fakeCatalog struct {
	urls map[string]string
	err  error
}

func (f *fakeCatalog) StreamURL(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url, ok := f.urls[id]
	if !ok {
		return "", client.ErrNotFound
	}
	return url, nil
}

func TestResolveLocalPathDirectly(t *testing.T) {
	r := NewStreamResolver(nil, nil)

	uri, err := r.Resolve(context.Background(), localTrack("a"))
	require.NoError(t, err)
	assert.Equal(t, "/music/a.mp3", uri)
}

func TestResolveLocalLibraryWinsOverCatalog(t *testing.T) {
	local := fakeIndex{"song-1": localTrack("song-1")}
	remote := &fakeCatalog{urls: map[string]string{"song-1": "https://cdn/song-1.mp3"}}
	r := NewStreamResolver(local, remote)

	uri, err := r.Resolve(context.Background(), Track{ID: "song-1", Kind: SourceRemote})
	require.NoError(t, err)
	assert.Equal(t, "/music/song-1.mp3", uri)
}

func TestResolveFallsBackToCatalog(t *testing.T) {
	remote := &fakeCatalog{urls: map[string]string{"song-2": "https://cdn/song-2.mp3"}}
	r := NewStreamResolver(fakeIndex{}, remote)

	uri, err := r.Resolve(context.Background(), Track{ID: "song-2", Kind: SourceRemote})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/song-2.mp3", uri)
}

func TestResolveUsesPrefilledStreamURL(t *testing.T) {
	r := NewStreamResolver(nil, nil)

	track := Track{ID: "song-3", Kind: SourceRemote, StreamURL: "https://cdn/cached.mp3"}
	uri, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/cached.mp3", uri)
}

func TestResolveUnknownTrack(t *testing.T) {
	r := NewStreamResolver(fakeIndex{}, &fakeCatalog{urls: map[string]string{}})

	_, err := r.Resolve(context.Background(), Track{ID: "ghost", Kind: SourceRemote})
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestResolveEntryWithoutObjectURL(t *testing.T) {
	// The catalog knows the id but its upload never completed.
	remote := &fakeCatalog{urls: map[string]string{"pending": ""}}
	r := NewStreamResolver(nil, remote)

	_, err := r.Resolve(context.Background(), Track{ID: "pending", Kind: SourceRemote})
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestResolveCatalogFailurePropagates(t *testing.T) {
	remote := &fakeCatalog{err: errors.New("connection refused")}
	r := NewStreamResolver(nil, remote)

	_, err := r.Resolve(context.Background(), Track{ID: "song-4", Kind: SourceRemote})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTrackNotFound))
}

func TestResolveNoSources(t *testing.T) {
	r := NewStreamResolver(nil, nil)

	_, err := r.Resolve(context.Background(), Track{ID: "anything", Kind: SourceRemote})
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

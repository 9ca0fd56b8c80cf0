package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melody/model"
)

func newSong(id, title, artist, album, hash string, uploadedAt time.Time) *model.Song {
	return &model.Song{
		ID:         id,
		Title:      title,
		Artist:     artist,
		Album:      album,
		Hash:       hash,
		Format:     "mp3",
		UploadedAt: uploadedAt,
	}
}

func TestInsertAndLookup(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	song := newSong("id-1", "One More Time", "Daft Punk", "Discovery", "hash-1", time.Now())
	require.NoError(t, repo.Insert(ctx, song))

	byID, err := repo.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "One More Time", byID.Title)

	byHash, err := repo.FindByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", byHash.ID)
}

func TestInsertDuplicateHashConflicts(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newSong("id-1", "A", "X", "", "same-hash", time.Now())))

	err := repo.Insert(ctx, newSong("id-2", "B", "Y", "", "same-hash", time.Now()))
	assert.True(t, errors.Is(err, ErrConflict))

	// The first row stays canonical.
	song, err := repo.FindByHash(ctx, "same-hash")
	require.NoError(t, err)
	assert.Equal(t, "id-1", song.ID)
}

func TestFindMissing(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.FindByHash(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListPagination(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		song := newSong(fmt.Sprintf("id-%d", i), fmt.Sprintf("Song %d", i), "Artist", "",
			fmt.Sprintf("hash-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Insert(ctx, song))
	}

	songs, total, err := repo.List(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, songs, 2)

	// Newest first, so offset 1 starts at the second newest.
	assert.Equal(t, "id-3", songs[0].ID)
	assert.Equal(t, "id-2", songs[1].ID)

	songs, total, err = repo.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, songs)
}

func TestZeroLimitMeansNoLimit(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		song := newSong(fmt.Sprintf("id-%d", i), fmt.Sprintf("Song %d", i), "Artist", "",
			fmt.Sprintf("hash-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Insert(ctx, song))
	}

	songs, total, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, songs, 4)

	recent, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	rows, err := repo.TopArtists(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].SongCount)
}

func TestSearchCaseInsensitive(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	rock := "Rock"
	daft := newSong("id-1", "Around the World", "Daft Punk", "Homework", "h1", time.Now())
	queen := newSong("id-2", "Innuendo", "Queen", "Innuendo", "h2", time.Now())
	queen.Genre = &rock
	require.NoError(t, repo.Insert(ctx, daft))
	require.NoError(t, repo.Insert(ctx, queen))

	byArtist, err := repo.Search(ctx, "DAFT", 10)
	require.NoError(t, err)
	require.Len(t, byArtist, 1)
	assert.Equal(t, "id-1", byArtist[0].ID)

	byGenre, err := repo.Search(ctx, "rock", 10)
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "id-2", byGenre[0].ID)

	none, err := repo.Search(ctx, "polka", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFilteredListings(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	jazz := "Jazz"
	s1 := newSong("id-1", "So What", "Miles Davis", "Kind of Blue", "h1", time.Now())
	s1.Genre = &jazz
	s2 := newSong("id-2", "Blue in Green", "Miles Davis", "Kind of Blue", "h2", time.Now())
	require.NoError(t, repo.Insert(ctx, s1))
	require.NoError(t, repo.Insert(ctx, s2))

	byArtist, err := repo.ByArtist(ctx, "miles", 10)
	require.NoError(t, err)
	assert.Len(t, byArtist, 2)

	byAlbum, err := repo.ByAlbum(ctx, "kind of blue", 10)
	require.NoError(t, err)
	assert.Len(t, byAlbum, 2)

	byGenre, err := repo.ByGenre(ctx, "jazz", 10)
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "id-1", byGenre[0].ID)
}

func TestListRecentOrder(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, newSong("id-old", "Old", "A", "", "h1", base)))
	require.NoError(t, repo.Insert(ctx, newSong("id-new", "New", "A", "", "h2", base.Add(time.Hour))))
	require.NoError(t, repo.Insert(ctx, newSong("id-mid", "Mid", "A", "", "h3", base.Add(time.Minute))))

	songs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, "id-new", songs[0].ID)
	assert.Equal(t, "id-mid", songs[1].ID)
	assert.Equal(t, "id-old", songs[2].ID)
}

func TestTopArtistsDeterministicTies(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	insert := func(id, artist string) {
		require.NoError(t, repo.Insert(ctx, newSong(id, "T", artist, "", "hash-"+id, time.Now())))
	}
	insert("1", "Beta")
	insert("2", "Beta")
	insert("3", "Alpha")
	insert("4", "Gamma")

	rows, err := repo.TopArtists(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, model.ArtistCount{Artist: "Beta", SongCount: 2}, rows[0])
	// Equal counts order by artist ascending.
	assert.Equal(t, model.ArtistCount{Artist: "Alpha", SongCount: 1}, rows[1])
	assert.Equal(t, model.ArtistCount{Artist: "Gamma", SongCount: 1}, rows[2])
}

func TestTopGenresSkipsUntagged(t *testing.T) {
	repo := NewMemorySongRepository()
	ctx := context.Background()

	rock := "Rock"
	tagged := newSong("id-1", "A", "X", "", "h1", time.Now())
	tagged.Genre = &rock
	require.NoError(t, repo.Insert(ctx, tagged))
	require.NoError(t, repo.Insert(ctx, newSong("id-2", "B", "Y", "", "h2", time.Now())))

	rows, err := repo.TopGenres(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.GenreCount{Genre: "Rock", SongCount: 1}, rows[0])
}

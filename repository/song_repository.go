package repository

import (
	"context"

	"github.com/cockroachdb/errors"

	"melody/model"
)

// Errors returned by SongRepository implementations.
var (
	// ErrNotFound means no song matched the given id or hash.
	ErrNotFound = errors.New("song not found")
	// ErrConflict means an insert collided with an existing content hash.
	// Callers are expected to re-read the winning row.
	ErrConflict = errors.New("duplicate song hash")
)

// SongRepository defines the catalog store operations. Every limit
// parameter treats values <= 0 as "no limit".
type SongRepository interface {
	// Insert writes a new song. Returns ErrConflict when a row with the
	// same content hash already exists.
	Insert(ctx context.Context, song *model.Song) error
	FindByID(ctx context.Context, id string) (*model.Song, error)
	FindByHash(ctx context.Context, hash string) (*model.Song, error)
	// List returns a page of songs ordered by upload time descending,
	// along with the total number of songs in the catalog.
	List(ctx context.Context, limit, offset int) ([]model.Song, int64, error)
	// Search matches the query case-insensitively as a substring of
	// title, artist, album or genre.
	Search(ctx context.Context, query string, limit int) ([]model.Song, error)
	ByArtist(ctx context.Context, artist string, limit int) ([]model.Song, error)
	ByAlbum(ctx context.Context, album string, limit int) ([]model.Song, error)
	ByGenre(ctx context.Context, genre string, limit int) ([]model.Song, error)
	ListRecent(ctx context.Context, limit int) ([]model.Song, error)
	// TopArtists and TopGenres return grouped counts ordered by count
	// descending, ties broken by the grouped key ascending.
	TopArtists(ctx context.Context, limit int) ([]model.ArtistCount, error)
	TopGenres(ctx context.Context, limit int) ([]model.GenreCount, error)
}

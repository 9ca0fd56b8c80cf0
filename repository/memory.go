package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"melody/model"
)

// memorySongRepository is an in-memory SongRepository. It backs tests and
// local development runs that have no MySQL instance, and enforces the
// same hash uniqueness guarantee as the MySQL implementation.
type memorySongRepository struct {
	mu     sync.RWMutex
	byID   map[string]*model.Song
	byHash map[string]*model.Song
	order  []string // insertion order of ids, oldest first
}

// NewMemorySongRepository creates an empty in-memory SongRepository.
func NewMemorySongRepository() SongRepository {
	return &memorySongRepository{
		byID:   make(map[string]*model.Song),
		byHash: make(map[string]*model.Song),
	}
}

func (r *memorySongRepository) Insert(ctx context.Context, song *model.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[song.Hash]; ok {
		return ErrConflict
	}
	cp := *song
	r.byID[cp.ID] = &cp
	r.byHash[cp.Hash] = &cp
	r.order = append(r.order, cp.ID)
	return nil
}

func (r *memorySongRepository) FindByID(ctx context.Context, id string) (*model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	song, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *song
	return &cp, nil
}

func (r *memorySongRepository) FindByHash(ctx context.Context, hash string) (*model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	song, ok := r.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *song
	return &cp, nil
}

func (r *memorySongRepository) List(ctx context.Context, limit, offset int) ([]model.Song, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedByRecency()
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Song{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memorySongRepository) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	q := strings.ToLower(query)
	return r.filter(limit, func(s *model.Song) bool {
		if strings.Contains(strings.ToLower(s.Title), q) ||
			strings.Contains(strings.ToLower(s.Artist), q) ||
			strings.Contains(strings.ToLower(s.Album), q) {
			return true
		}
		return s.Genre != nil && strings.Contains(strings.ToLower(*s.Genre), q)
	})
}

func (r *memorySongRepository) ByArtist(ctx context.Context, artist string, limit int) ([]model.Song, error) {
	q := strings.ToLower(artist)
	return r.filter(limit, func(s *model.Song) bool {
		return strings.Contains(strings.ToLower(s.Artist), q)
	})
}

func (r *memorySongRepository) ByAlbum(ctx context.Context, album string, limit int) ([]model.Song, error) {
	q := strings.ToLower(album)
	return r.filter(limit, func(s *model.Song) bool {
		return strings.Contains(strings.ToLower(s.Album), q)
	})
}

func (r *memorySongRepository) ByGenre(ctx context.Context, genre string, limit int) ([]model.Song, error) {
	q := strings.ToLower(genre)
	return r.filter(limit, func(s *model.Song) bool {
		return s.Genre != nil && strings.Contains(strings.ToLower(*s.Genre), q)
	})
}

func (r *memorySongRepository) ListRecent(ctx context.Context, limit int) ([]model.Song, error) {
	return r.filter(limit, func(*model.Song) bool { return true })
}

func (r *memorySongRepository) TopArtists(ctx context.Context, limit int) ([]model.ArtistCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range r.byID {
		counts[s.Artist]++
	}

	rows := make([]model.ArtistCount, 0, len(counts))
	for artist, n := range counts {
		rows = append(rows, model.ArtistCount{Artist: artist, SongCount: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SongCount != rows[j].SongCount {
			return rows[i].SongCount > rows[j].SongCount
		}
		return rows[i].Artist < rows[j].Artist
	})
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memorySongRepository) TopGenres(ctx context.Context, limit int) ([]model.GenreCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range r.byID {
		if s.Genre != nil {
			counts[*s.Genre]++
		}
	}

	rows := make([]model.GenreCount, 0, len(counts))
	for genre, n := range counts {
		rows = append(rows, model.GenreCount{Genre: genre, SongCount: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SongCount != rows[j].SongCount {
			return rows[i].SongCount > rows[j].SongCount
		}
		return rows[i].Genre < rows[j].Genre
	})
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// filter returns matching songs ordered by upload time descending.
// Must be called without the lock held.
func (r *memorySongRepository) filter(limit int, match func(*model.Song) bool) ([]model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	songs := make([]model.Song, 0)
	for _, s := range r.sortedByRecency() {
		s := s
		if match(&s) {
			songs = append(songs, s)
		}
		if limit > 0 && len(songs) == limit {
			break
		}
	}
	return songs, nil
}

// sortedByRecency returns all songs ordered by upload time descending,
// ties broken by id ascending so pagination is stable.
// Must be called with the lock held.
func (r *memorySongRepository) sortedByRecency() []model.Song {
	songs := make([]model.Song, 0, len(r.order))
	for _, id := range r.order {
		songs = append(songs, *r.byID[id])
	}
	sort.SliceStable(songs, func(i, j int) bool {
		if !songs[i].UploadedAt.Equal(songs[j].UploadedAt) {
			return songs[i].UploadedAt.After(songs[j].UploadedAt)
		}
		return songs[i].ID < songs[j].ID
	})
	return songs
}

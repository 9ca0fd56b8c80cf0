package repository

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"melody/model"
)

// mysqlSongRepository implements SongRepository on a GORM MySQL handle.
type mysqlSongRepository struct {
	db *gorm.DB
}

// NewMySQLSongRepository creates a SongRepository backed by MySQL.
func NewMySQLSongRepository(db *gorm.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

func (r *mysqlSongRepository) Insert(ctx context.Context, song *model.Song) error {
	err := r.db.WithContext(ctx).Create(song).Error
	if err != nil {
		if isDuplicateKey(err) {
			return errors.WithDetailf(ErrConflict, "hash %s", song.Hash)
		}
		return errors.Wrap(err, "insert song")
	}
	return nil
}

// sqlLimit maps the repository's "no limit" convention onto GORM's:
// limit <= 0 means every row, but GORM renders Limit(0) as LIMIT 0.
// A negative value tells GORM to omit the clause entirely.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// isDuplicateKey reports whether err is a MySQL unique constraint violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldrv.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func (r *mysqlSongRepository) FindByID(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).First(&song, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find song by id")
	}
	return &song, nil
}

func (r *mysqlSongRepository) FindByHash(ctx context.Context, hash string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).First(&song, "hash = ?", hash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find song by hash")
	}
	return &song, nil
}

func (r *mysqlSongRepository) List(ctx context.Context, limit, offset int) ([]model.Song, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Song{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count songs")
	}

	var songs []model.Song
	err := r.db.WithContext(ctx).
		Order("uploaded_at DESC, id ASC").
		Limit(sqlLimit(limit)).Offset(offset).
		Find(&songs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list songs")
	}
	return songs, total, nil
}

func (r *mysqlSongRepository) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var songs []model.Song
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(artist) LIKE ? OR LOWER(album) LIKE ? OR (genre IS NOT NULL AND LOWER(genre) LIKE ?)",
			pattern, pattern, pattern, pattern).
		Order("uploaded_at DESC, id ASC").
		Limit(sqlLimit(limit)).
		Find(&songs).Error
	if err != nil {
		return nil, errors.Wrap(err, "search songs")
	}
	return songs, nil
}

func (r *mysqlSongRepository) ByArtist(ctx context.Context, artist string, limit int) ([]model.Song, error) {
	return r.listWhere(ctx, "LOWER(artist) LIKE ?", "%"+strings.ToLower(artist)+"%", limit)
}

func (r *mysqlSongRepository) ByAlbum(ctx context.Context, album string, limit int) ([]model.Song, error) {
	return r.listWhere(ctx, "LOWER(album) LIKE ?", "%"+strings.ToLower(album)+"%", limit)
}

func (r *mysqlSongRepository) ByGenre(ctx context.Context, genre string, limit int) ([]model.Song, error) {
	return r.listWhere(ctx, "genre IS NOT NULL AND LOWER(genre) LIKE ?", "%"+strings.ToLower(genre)+"%", limit)
}

func (r *mysqlSongRepository) listWhere(ctx context.Context, cond, arg string, limit int) ([]model.Song, error) {
	var songs []model.Song
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("uploaded_at DESC, id ASC").
		Limit(sqlLimit(limit)).
		Find(&songs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list songs by filter")
	}
	return songs, nil
}

func (r *mysqlSongRepository) ListRecent(ctx context.Context, limit int) ([]model.Song, error) {
	var songs []model.Song
	err := r.db.WithContext(ctx).
		Order("uploaded_at DESC, id ASC").
		Limit(sqlLimit(limit)).
		Find(&songs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list recent songs")
	}
	return songs, nil
}

func (r *mysqlSongRepository) TopArtists(ctx context.Context, limit int) ([]model.ArtistCount, error) {
	var rows []model.ArtistCount
	err := r.db.WithContext(ctx).Model(&model.Song{}).
		Select("artist, COUNT(*) AS song_count").
		Group("artist").
		Order("song_count DESC, artist ASC").
		Limit(sqlLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "top artists")
	}
	return rows, nil
}

func (r *mysqlSongRepository) TopGenres(ctx context.Context, limit int) ([]model.GenreCount, error) {
	var rows []model.GenreCount
	err := r.db.WithContext(ctx).Model(&model.Song{}).
		Select("genre, COUNT(*) AS song_count").
		Where("genre IS NOT NULL").
		Group("genre").
		Order("song_count DESC, genre ASC").
		Limit(sqlLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "top genres")
	}
	return rows, nil
}

// Package cache provides a Redis-backed cache for the catalog's hot read
// queries (recent songs, popular artists/genres). A nil *SongCache is
// valid and behaves as a pass-through, so callers never branch on wiring.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"melody/logger"
	"melody/model"
)

const keyPrefix = "melody:cache:"

// SongCache caches JSON-encoded query results with a TTL and is
// invalidated wholesale on every successful ingest.
type SongCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSongCache creates a cache over the given Redis client.
func NewSongCache(client *redis.Client, ttl time.Duration) *SongCache {
	return &SongCache{client: client, ttl: ttl}
}

// GetRecent returns the cached recent listing for limit, if present.
func (c *SongCache) GetRecent(ctx context.Context, limit int) ([]model.Song, bool) {
	var songs []model.Song
	if !c.get(ctx, recentKey(limit), &songs) {
		return nil, false
	}
	return songs, true
}

// SetRecent caches the recent listing for limit.
func (c *SongCache) SetRecent(ctx context.Context, limit int, songs []model.Song) {
	c.set(ctx, recentKey(limit), songs)
}

// GetTopArtists returns the cached popular-artists listing, if present.
func (c *SongCache) GetTopArtists(ctx context.Context, limit int) ([]model.ArtistCount, bool) {
	var rows []model.ArtistCount
	if !c.get(ctx, artistsKey(limit), &rows) {
		return nil, false
	}
	return rows, true
}

// SetTopArtists caches the popular-artists listing.
func (c *SongCache) SetTopArtists(ctx context.Context, limit int, rows []model.ArtistCount) {
	c.set(ctx, artistsKey(limit), rows)
}

// GetTopGenres returns the cached popular-genres listing, if present.
func (c *SongCache) GetTopGenres(ctx context.Context, limit int) ([]model.GenreCount, bool) {
	var rows []model.GenreCount
	if !c.get(ctx, genresKey(limit), &rows) {
		return nil, false
	}
	return rows, true
}

// SetTopGenres caches the popular-genres listing.
func (c *SongCache) SetTopGenres(ctx context.Context, limit int, rows []model.GenreCount) {
	c.set(ctx, genresKey(limit), rows)
}

// Invalidate drops every cached listing. Called after each ingest.
func (c *SongCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("cache invalidation failed",
				logger.String("key", iter.Val()),
				logger.ErrorField(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache scan failed", logger.ErrorField(err))
	}
}

func (c *SongCache) get(ctx context.Context, key string, out interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache read failed", logger.String("key", key), logger.ErrorField(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Warn("cache entry corrupt, dropping", logger.String("key", key))
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *SongCache) set(ctx context.Context, key string, val interface{}) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}

func recentKey(limit int) string {
	return fmt.Sprintf("%srecent:%d", keyPrefix, limit)
}

func artistsKey(limit int) string {
	return fmt.Sprintf("%spopular:artists:%d", keyPrefix, limit)
}

func genresKey(limit int) string {
	return fmt.Sprintf("%spopular:genres:%d", keyPrefix, limit)
}

// Package ingest implements the content-addressed catalog ingestion
// pipeline: fingerprint, dedup lookup, metadata extraction, object-store
// upload, catalog insert.
package ingest

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"melody/logger"
	"melody/model"
	"melody/repository"
	"melody/storage"
)

// Pipeline orchestrates the ingestion of uploaded audio payloads.
// Multiple ingestions may run concurrently; the hash uniqueness
// constraint in the repository is the only cross-ingest synchronization.
type Pipeline struct {
	repo  repository.SongRepository
	store storage.Store
}

// NewPipeline creates an ingestion pipeline over the given catalog
// repository and object store.
func NewPipeline(repo repository.SongRepository, store storage.Store) *Pipeline {
	return &Pipeline{repo: repo, store: store}
}

// Ingest stores an audio payload exactly once and returns its catalog
// entry. Re-ingesting byte-identical content is idempotent: the existing
// entry is returned (existing=true) and no second upload happens.
//
// override, when non-nil, supplies caller metadata that takes precedence
// over what the extractor reads from the payload.
//
// On upload failure nothing is written to the catalog. When a concurrent
// ingest of the same content wins the insert race, the winner's row is
// returned instead of an error.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, originalFileName string, override *model.SongMetadata) (*model.Song, bool, error) {
	hash := Fingerprint(data)

	existing, err := p.repo.FindByHash(ctx, hash)
	if err == nil {
		logger.Info("ingest: content already in catalog",
			logger.String("hash", hash),
			logger.String("songId", existing.ID))
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, errors.Wrap(err, "dedup lookup")
	}

	meta := Extract(data, originalFileName)
	applyOverride(&meta, override)

	objectName := storage.ObjectName(meta.Artist, meta.Title, hash, meta.Format)
	objectURL, err := p.store.Upload(ctx, objectName, data, MimeType(meta.Format))
	if err != nil {
		// No catalog row exists yet; aborting here leaves no partial state.
		return nil, false, errors.Wrap(err, "upload")
	}

	song := &model.Song{
		ID:         uuid.NewString(),
		Title:      meta.Title,
		Artist:     meta.Artist,
		Album:      meta.Album,
		Hash:       hash,
		ObjectURL:  objectURL,
		Duration:   meta.Duration,
		FileSize:   meta.FileSize,
		Format:     meta.Format,
		Bitrate:    meta.Bitrate,
		Year:       meta.Year,
		Genre:      meta.Genre,
		UploadedAt: time.Now().UTC(),
	}

	if err := p.repo.Insert(ctx, song); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent ingest of the same content won the insert race.
			// Its row is canonical; ours becomes an orphaned object copy.
			winner, ferr := p.repo.FindByHash(ctx, hash)
			if ferr != nil {
				return nil, false, errors.Wrap(ferr, "re-read after conflict")
			}
			logger.Info("ingest: lost insert race, returning winner",
				logger.String("hash", hash),
				logger.String("songId", winner.ID))
			return winner, true, nil
		}
		return nil, false, errors.Wrap(err, "insert song")
	}

	logger.Info("ingest: song stored",
		logger.String("songId", song.ID),
		logger.String("hash", hash),
		logger.String("object", objectName),
		logger.Int64("size", song.FileSize))
	return song, false, nil
}

func applyOverride(meta *Metadata, override *model.SongMetadata) {
	if override == nil {
		return
	}
	if override.Title != "" {
		meta.Title = override.Title
	}
	if override.Artist != "" {
		meta.Artist = override.Artist
	}
	if override.Album != "" {
		meta.Album = override.Album
	}
	if override.Genre != nil {
		meta.Genre = override.Genre
	}
	if override.Year != nil {
		meta.Year = override.Year
	}
	if override.Bitrate != nil {
		meta.Bitrate = override.Bitrate
	}
}

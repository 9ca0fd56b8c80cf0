package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"melody/cache"
	"melody/core/ingest"
	"melody/logger"
	"melody/model"
	"melody/repository"
	"melody/storage"
)

const maxUploadBytes = 100 << 20 // 100MB

// APIHandler serves the catalog API.
type APIHandler struct {
	repo     repository.SongRepository
	pipeline *ingest.Pipeline
	cache    *cache.SongCache
}

// NewAPIHandler creates the catalog API handler. cache may be nil.
func NewAPIHandler(repo repository.SongRepository, pipeline *ingest.Pipeline, songCache *cache.SongCache) *APIHandler {
	return &APIHandler{
		repo:     repo,
		pipeline: pipeline,
		cache:    songCache,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, resp model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to write response", logger.ErrorField(err))
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeEnvelope(w, status, model.APIResponse{Success: true, Data: raw, Message: message})
}

func writeError(w http.ResponseWriter, status int, errMsg string) {
	writeEnvelope(w, status, model.APIResponse{Success: false, Error: errMsg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// GetSongsHandler returns a page of songs ordered by upload time.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	songs, total, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error("failed to list songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching songs")
		return
	}
	writeSuccess(w, http.StatusOK, model.SongListResponse{Songs: songs, Total: int(total)}, "")
}

// GetSongHandler returns one song by id.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "song not found")
			return
		}
		logger.Error("failed to fetch song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching song")
		return
	}
	writeSuccess(w, http.StatusOK, song, "")
}

// StreamHandler resolves the playable URL for a song.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "song not found or not available for streaming")
			return
		}
		logger.Error("failed to resolve stream", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error getting stream URL")
		return
	}
	if song.ObjectURL == "" {
		writeError(w, http.StatusNotFound, "song not found or not available for streaming")
		return
	}
	writeSuccess(w, http.StatusOK, model.StreamResponse{StreamURL: song.ObjectURL}, "")
}

// ExistsHandler is the dedup probe: does content with this hash exist?
func (h *APIHandler) ExistsHandler(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	song, err := h.repo.FindByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeSuccess(w, http.StatusOK, model.ExistsResponse{Exists: false}, "")
			return
		}
		logger.Error("dedup probe failed", logger.String("hash", hash), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error checking song existence")
		return
	}
	writeSuccess(w, http.StatusOK, model.ExistsResponse{Exists: true, Song: song}, "")
}

// UploadHandler ingests a multipart upload: an optional "metadata" JSON
// part plus the "audio" binary part.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer audioFile.Close()

	if !ingest.SupportedFormat(audioHeader.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported audio format")
		return
	}

	data, err := io.ReadAll(audioFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	var override *model.SongMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		var meta model.SongMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeError(w, http.StatusBadRequest, "malformed metadata")
			return
		}
		override = &meta
	}

	logger.Info("upload received",
		logger.String("fileName", audioHeader.Filename),
		logger.Int("size", len(data)))

	song, existing, err := h.pipeline.Ingest(r.Context(), data, audioHeader.Filename, override)
	if err != nil {
		if errors.Is(err, storage.ErrUpstream) {
			logger.Error("upload failed upstream", logger.ErrorField(err))
			writeError(w, http.StatusBadGateway, "failed to store audio file")
			return
		}
		logger.Error("ingestion failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	resp := model.UploadResponse{SongID: song.ID, Existing: existing, Song: song}
	if existing {
		writeSuccess(w, http.StatusOK, resp, "song already exists")
		return
	}

	h.cache.Invalidate(r.Context())
	writeSuccess(w, http.StatusCreated, resp, "song uploaded successfully")
}

// SearchHandler matches songs by case-insensitive substring over
// title, artist, album and genre.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing search query")
		return
	}
	limit := queryInt(r, "limit", 20)

	songs, err := h.repo.Search(r.Context(), query, limit)
	if err != nil {
		logger.Error("search failed", logger.String("q", query), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeSuccess(w, http.StatusOK, model.SongListResponse{Songs: songs, Total: len(songs)}, "")
}

// ArtistSongsHandler lists songs whose artist matches.
func (h *APIHandler) ArtistSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.filteredListing(w, r, mux.Vars(r)["artist"], h.repo.ByArtist)
}

// AlbumSongsHandler lists songs whose album matches.
func (h *APIHandler) AlbumSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.filteredListing(w, r, mux.Vars(r)["album"], h.repo.ByAlbum)
}

// GenreSongsHandler lists songs whose genre matches.
func (h *APIHandler) GenreSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.filteredListing(w, r, mux.Vars(r)["genre"], h.repo.ByGenre)
}

func (h *APIHandler) filteredListing(w http.ResponseWriter, r *http.Request, key string,
	list func(ctx context.Context, key string, limit int) ([]model.Song, error)) {
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing filter value")
		return
	}
	limit := queryInt(r, "limit", 20)

	songs, err := list(r.Context(), key, limit)
	if err != nil {
		logger.Error("filtered listing failed", logger.String("key", key), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching songs")
		return
	}
	writeSuccess(w, http.StatusOK, model.SongListResponse{Songs: songs, Total: len(songs)}, "")
}

// PopularArtistsHandler returns grouped artist counts, most songs first.
func (h *APIHandler) PopularArtistsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	if rows, ok := h.cache.GetTopArtists(r.Context(), limit); ok {
		writeSuccess(w, http.StatusOK, rows, "")
		return
	}

	rows, err := h.repo.TopArtists(r.Context(), limit)
	if err != nil {
		logger.Error("popular artists query failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching popular artists")
		return
	}
	h.cache.SetTopArtists(r.Context(), limit, rows)
	writeSuccess(w, http.StatusOK, rows, "")
}

// PopularGenresHandler returns grouped genre counts, most songs first.
func (h *APIHandler) PopularGenresHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	if rows, ok := h.cache.GetTopGenres(r.Context(), limit); ok {
		writeSuccess(w, http.StatusOK, rows, "")
		return
	}

	rows, err := h.repo.TopGenres(r.Context(), limit)
	if err != nil {
		logger.Error("popular genres query failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching popular genres")
		return
	}
	h.cache.SetTopGenres(r.Context(), limit, rows)
	writeSuccess(w, http.StatusOK, rows, "")
}

// RecentSongsHandler returns the most recently uploaded songs.
func (h *APIHandler) RecentSongsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	if songs, ok := h.cache.GetRecent(r.Context(), limit); ok {
		writeSuccess(w, http.StatusOK, model.SongListResponse{Songs: songs, Total: len(songs)}, "")
		return
	}

	songs, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		logger.Error("recent songs query failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "error fetching recent songs")
		return
	}
	h.cache.SetRecent(r.Context(), limit, songs)
	writeSuccess(w, http.StatusOK, model.SongListResponse{Songs: songs, Total: len(songs)}, "")
}

// HealthHandler is the liveness probe.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// Package client provides the HTTP client for the catalog service API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"melody/core/ingest"
	"melody/model"
)

// ErrNotFound means the catalog has no entry for the requested id or the
// entry is not streamable yet.
var ErrNotFound = errors.New("catalog entry not found")

// CatalogClient talks to the catalog service.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCatalogClient creates a client for the service at baseURL.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // uploads can be large
		},
	}
}

// get performs a GET and decodes the envelope's data field into out.
func (c *CatalogClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}

func decodeEnvelope(resp *http.Response, out interface{}) error {
	var envelope model.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrap(err, "decode response")
	}

	if !envelope.Success {
		if resp.StatusCode == http.StatusNotFound {
			return errors.WithDetail(ErrNotFound, envelope.Error)
		}
		return errors.Newf("catalog service: %s", envelope.Error)
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Wrap(err, "decode data")
		}
	}
	return nil
}

// ListSongs fetches a page of songs with the catalog total.
func (c *CatalogClient) ListSongs(ctx context.Context, limit, offset int) ([]model.Song, int, error) {
	var data model.SongListResponse
	path := fmt.Sprintf("/api/music/songs?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &data); err != nil {
		return nil, 0, err
	}
	return data.Songs, data.Total, nil
}

// GetSong fetches a single song by id.
func (c *CatalogClient) GetSong(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	if err := c.get(ctx, "/api/music/songs/"+url.PathEscape(id), &song); err != nil {
		return nil, err
	}
	return &song, nil
}

// StreamURL resolves the playable URL for a catalog song.
func (c *CatalogClient) StreamURL(ctx context.Context, id string) (string, error) {
	var data model.StreamResponse
	if err := c.get(ctx, "/api/music/stream/"+url.PathEscape(id), &data); err != nil {
		return "", err
	}
	return data.StreamURL, nil
}

// Exists probes the catalog for content with the given hash.
func (c *CatalogClient) Exists(ctx context.Context, hash string) (*model.ExistsResponse, error) {
	var data model.ExistsResponse
	if err := c.get(ctx, "/api/music/exists/"+url.PathEscape(hash), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Search matches songs by substring.
func (c *CatalogClient) Search(ctx context.Context, query string, limit int) ([]model.Song, error) {
	var data model.SongListResponse
	path := fmt.Sprintf("/api/music/search?q=%s&limit=%d", url.QueryEscape(query), limit)
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Songs, nil
}

// Recent fetches the most recently uploaded songs.
func (c *CatalogClient) Recent(ctx context.Context, limit int) ([]model.Song, error) {
	var data model.SongListResponse
	path := fmt.Sprintf("/api/music/recent?limit=%d", limit)
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Songs, nil
}

// Upload sends an audio payload to the catalog. It probes the dedup
// endpoint first and skips the byte transfer entirely when the content is
// already known.
func (c *CatalogClient) Upload(ctx context.Context, data []byte, fileName string, meta *model.SongMetadata) (*model.UploadResponse, error) {
	hash := ingest.Fingerprint(data)
	if probe, err := c.Exists(ctx, hash); err == nil && probe.Exists {
		return &model.UploadResponse{
			SongID:   probe.Song.ID,
			Existing: true,
			Song:     probe.Song,
		}, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, errors.Wrap(err, "encode metadata")
		}
		if err := writer.WriteField("metadata", string(raw)); err != nil {
			return nil, errors.Wrap(err, "write metadata part")
		}
	}

	part, err := writer.CreateFormFile("audio", fileName)
	if err != nil {
		return nil, errors.Wrap(err, "create audio part")
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.Wrap(err, "write audio part")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finish multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/music/upload", &body)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "POST upload")
	}
	defer resp.Body.Close()

	var result model.UploadResponse
	if err := decodeEnvelope(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"melody/logger"
)

const defaultB2AuthURL = "https://api.backblazeb2.com/b2api/v2/b2_authorize_account"

// B2Store is a Store backed by the native Backblaze B2 HTTP API.
//
// Authorization tokens are cached for the process lifetime and refreshed
// lazily. A 401-class response triggers exactly one re-authentication and
// retry before the failure surfaces. Refreshes are single-flight: a mutex
// plus a generation counter keep concurrent 401s from stampeding the
// authorize endpoint.
type B2Store struct {
	keyID     string
	appKey    string
	bucketID  string
	bucket    string
	cdnDomain string
	authURL   string

	httpClient *http.Client

	mu          sync.Mutex
	authToken   string
	apiURL      string
	downloadURL string
	authGen     uint64
}

// B2Config holds the credentials and bucket identity for a B2Store.
type B2Config struct {
	KeyID          string
	ApplicationKey string
	BucketID       string
	BucketName     string
	CDNDomain      string
	AuthURL        string // override for tests; defaults to the public API
}

type b2AuthResponse struct {
	AuthorizationToken string `json:"authorizationToken"`
	APIURL             string `json:"apiUrl"`
	DownloadURL        string `json:"downloadUrl"`
}

type b2UploadTarget struct {
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// NewB2Store creates a B2 store. No network call happens until first use.
func NewB2Store(cfg B2Config) (*B2Store, error) {
	if cfg.KeyID == "" || cfg.ApplicationKey == "" {
		return nil, errors.New("b2 credentials are required")
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultB2AuthURL
	}
	return &B2Store{
		keyID:     cfg.KeyID,
		appKey:    cfg.ApplicationKey,
		bucketID:  cfg.BucketID,
		bucket:    cfg.BucketName,
		cdnDomain: cfg.CDNDomain,
		authURL:   authURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// auth returns the cached credentials, authenticating on first use.
// The returned generation identifies the credentials for refresh calls.
func (s *B2Store) auth(ctx context.Context) (token, apiURL string, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authToken == "" {
		if err := s.authorizeLocked(ctx); err != nil {
			return "", "", 0, err
		}
	}
	return s.authToken, s.apiURL, s.authGen, nil
}

// refreshAuth re-authenticates after a 401. seenGen is the generation the
// caller used; if another goroutine already refreshed, the cached token is
// reused instead of issuing a redundant authorize call.
func (s *B2Store) refreshAuth(ctx context.Context, seenGen uint64) (token, apiURL string, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authGen == seenGen {
		if err := s.authorizeLocked(ctx); err != nil {
			return "", "", 0, err
		}
	}
	return s.authToken, s.apiURL, s.authGen, nil
}

// authorizeLocked performs the b2_authorize_account call.
// Must be called with the mutex held.
func (s *B2Store) authorizeLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.authURL, nil)
	if err != nil {
		return errors.Wrap(err, "build authorize request")
	}
	creds := base64.StdEncoding.EncodeToString([]byte(s.keyID + ":" + s.appKey))
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrUpstream, "authorize: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrUpstream, "authorize: status %d", resp.StatusCode)
	}

	var auth b2AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return errors.Wrapf(ErrUpstream, "authorize: decode response: %v", err)
	}

	s.authToken = auth.AuthorizationToken
	s.apiURL = auth.APIURL
	s.downloadURL = auth.DownloadURL
	s.authGen++

	logger.Info("b2 authorized", logger.Uint64("generation", s.authGen))
	return nil
}

// uploadTarget fetches a fresh upload URL and token. Targets are not
// reusable across uploads, so this is called once per Upload.
func (s *B2Store) uploadTarget(ctx context.Context, token, apiURL string) (*b2UploadTarget, int, error) {
	body := fmt.Sprintf(`{"bucketId": %q}`, s.bucketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/b2api/v2/b2_get_upload_url", bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, 0, errors.Wrap(err, "build upload url request")
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrUpstream, "get upload url: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, errors.Wrapf(ErrUpstream, "get upload url: status %d", resp.StatusCode)
	}

	var target b2UploadTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, 0, errors.Wrapf(ErrUpstream, "get upload url: decode response: %v", err)
	}
	return &target, resp.StatusCode, nil
}

// Upload stores the blob and returns its public URL. A 401 on either the
// upload-target fetch or the upload itself triggers one re-auth and retry.
func (s *B2Store) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	token, apiURL, gen, err := s.auth(ctx)
	if err != nil {
		return "", err
	}

	status, err := s.uploadOnce(ctx, token, apiURL, objectName, data, contentType)
	if err != nil && isAuthStatus(status) {
		logger.Warn("b2 token rejected, re-authenticating", logger.String("object", objectName))
		token, apiURL, _, err = s.refreshAuth(ctx, gen)
		if err != nil {
			return "", err
		}
		_, err = s.uploadOnce(ctx, token, apiURL, objectName, data, contentType)
	}
	if err != nil {
		return "", err
	}

	logger.Info("object uploaded",
		logger.String("object", objectName),
		logger.Int("size", len(data)))
	return s.PublicURL(objectName), nil
}

// uploadOnce performs one upload attempt: fetch a target, then POST the
// bytes. Returns the HTTP status that caused a failure, 0 when unknown.
func (s *B2Store) uploadOnce(ctx context.Context, token, apiURL, objectName string, data []byte, contentType string) (int, error) {
	target, status, err := s.uploadTarget(ctx, token, apiURL)
	if err != nil {
		return status, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.UploadURL, bytes.NewReader(data))
	if err != nil {
		return 0, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Authorization", target.AuthorizationToken)
	req.Header.Set("X-Bz-File-Name", objectName)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Bz-Content-Sha1", "do_not_verify")
	req.ContentLength = int64(len(data))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrapf(ErrUpstream, "upload %s: %v", objectName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, errors.Wrapf(ErrUpstream, "upload %s: status %d", objectName, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// PublicURL builds the download URL, preferring the CDN domain.
func (s *B2Store) PublicURL(objectName string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/file/%s/%s", s.cdnDomain, s.bucket, objectName)
	}
	s.mu.Lock()
	base := s.downloadURL
	s.mu.Unlock()
	return fmt.Sprintf("%s/file/%s/%s", base, s.bucket, objectName)
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

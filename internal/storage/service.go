// Package storage is the durable object-store layer behind the media
// pipeline. It talks to any S3-compatible backend (DigitalOcean Spaces,
// MinIO, AWS) through the MinIO client.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// Derivatives and originals are immutable once written, so clients may
	// cache them for a year.
	cacheControl = "public, max-age=31536000"

	defaultPresignExpiry = time.Hour
	fetchTimeout         = 30 * time.Second

	// Remote fetches are buffered in memory, so they carry the same cap as
	// direct uploads. Without it a huge response is read in full before any
	// size validation runs.
	maxFetchBytes = 50 * 1024 * 1024
)

// Config carries everything needed to reach the backend. All fields except
// PublicBaseURL and UseSSL are required; Validate is called at startup and
// a failure there is fatal, not per-request.
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string // optional CDN base overriding the bucket URL
}

// Validate reports every missing required field at once.
func (c Config) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"endpoint", c.Endpoint},
		{"region", c.Region},
		{"access key", c.AccessKey},
		{"secret key", c.SecretKey},
		{"bucket", c.Bucket},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("storage config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// objectAPI is the slice of *minio.Client this service uses. Tests stub it.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignHeader(ctx context.Context, method, bucket, object string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
}

// StoredFile describes one object persisted to the backend.
type StoredFile struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// FileInfo is the result of a stat. A nil *FileInfo from GetFileInfo means
// the key does not exist; that is a normal miss, not an error.
type FileInfo struct {
	Size   int64
	Exists bool
}

// Service wraps the S3-compatible backend. Every call is stateless against
// the backend; keys are generation-time-unique so concurrent pipeline runs
// never contend on a key.
type Service struct {
	api      objectAPI
	cfg      Config
	client   *http.Client
	now      func() time.Time
	maxFetch int64
}

// New builds the backend client from explicit configuration. No ambient
// globals: the caller constructs one Service at startup and injects it.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &Service{
		api:      api,
		cfg:      cfg,
		client:   &http.Client{Timeout: fetchTimeout},
		now:      time.Now,
		maxFetch: maxFetchBytes,
	}, nil
}

// StoreFile uploads a buffer under a deterministic key with a public-read
// ACL and a 1-year cache header. Safe to retry: the same (name, fileID)
// within one millisecond lands on the same key, and the backend is
// last-writer-wins per key.
func (s *Service) StoreFile(ctx context.Context, data []byte, originalName, fileID, mimeType string) (*StoredFile, error) {
	key := ObjectKey(originalName, fileID, s.now())

	opts := minio.PutObjectOptions{
		ContentType:  mimeType,
		CacheControl: cacheControl,
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	}
	if _, err := s.api.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return nil, &StorageError{Op: "put", Key: key, Err: err}
	}

	return &StoredFile{
		Filename: path.Base(key),
		Key:      key,
		URL:      s.PublicURL(key),
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// FetchFile downloads a remote resource, returning its bytes and cleaned
// content type. A non-2xx response, a transport failure or a body over the
// size cap is a *FetchError; the caller may retry.
func (s *Service) FetchFile(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	limit := s.maxFetch
	if limit <= 0 {
		limit = maxFetchBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(data)) > limit {
		return nil, "", &FetchError{URL: rawURL, Err: fmt.Errorf("response larger than %d bytes", limit)}
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mimeType = strings.Split(mimeType, ";")[0]

	return data, mimeType, nil
}

// StoreFileFromURL fetches a remote resource and stores it as-is.
func (s *Service) StoreFileFromURL(ctx context.Context, rawURL, originalName, fileID string) (*StoredFile, error) {
	data, mimeType, err := s.FetchFile(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.StoreFile(ctx, data, originalName, fileID, mimeType)
}

// DeleteFile is best-effort. Cleanup must never block the user-facing
// operation, so failures are logged and swallowed.
func (s *Service) DeleteFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.api.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("storage delete_failed key=%s error=%q", key, err)
	}
}

// FileExists treats a missing key as a normal false, not an error.
func (s *Service) FileExists(ctx context.Context, key string) (bool, error) {
	info, err := s.GetFileInfo(ctx, key)
	if err != nil {
		return false, err
	}
	return info != nil && info.Exists, nil
}

// GetFileInfo stats a key; nil means not found.
func (s *Service) GetFileInfo(ctx context.Context, key string) (*FileInfo, error) {
	info, err := s.api.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "stat", Key: key, Err: err}
	}
	return &FileInfo{Size: info.Size, Exists: true}, nil
}

// ListFiles returns every key under a prefix. The client paginates
// internally; an empty prefix match is an empty slice, not an error.
func (s *Service) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	for obj := range s.api.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, &StorageError{Op: "list", Key: prefix, Err: obj.Err}
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// GeneratePresignedURL returns a time-limited PUT URL bound to a content
// type, for direct-from-client uploads that bypass the application server.
func (s *Service) GeneratePresignedURL(ctx context.Context, key, mimeType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = defaultPresignExpiry
	}

	u, err := s.api.PresignHeader(ctx, http.MethodPut, s.cfg.Bucket, key, expires,
		url.Values{}, http.Header{"Content-Type": []string{mimeType}})
	if err != nil {
		return "", &StorageError{Op: "presign", Key: key, Err: err}
	}
	return u.String(), nil
}

// PublicURL builds the public address of a key, preferring the CDN base
// when one is configured.
func (s *Service) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.cfg.Bucket, s.cfg.Endpoint, key)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

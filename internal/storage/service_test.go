package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	putKey     string
	putOpts    minio.PutObjectOptions
	putSize    int64
	putErr     error
	statInfo   minio.ObjectInfo
	statErr    error
	removed    []string
	removeErr  error
	listed     []minio.ObjectInfo
	presignErr error
}

func (s *stubAPI) PutObject(_ context.Context, _, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	s.putKey = object
	s.putOpts = opts
	s.putSize = size
	if s.putErr != nil {
		return minio.UploadInfo{}, s.putErr
	}
	return minio.UploadInfo{Key: object, Size: size}, nil
}

func (s *stubAPI) StatObject(context.Context, string, string, minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return s.statInfo, s.statErr
}

func (s *stubAPI) RemoveObject(_ context.Context, _, object string, _ minio.RemoveObjectOptions) error {
	s.removed = append(s.removed, object)
	return s.removeErr
}

func (s *stubAPI) ListObjects(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(s.listed))
	for _, obj := range s.listed {
		ch <- obj
	}
	close(ch)
	return ch
}

func (s *stubAPI) PresignHeader(_ context.Context, method, _, object string, expires time.Duration, _ url.Values, headers http.Header) (*url.URL, error) {
	if s.presignErr != nil {
		return nil, s.presignErr
	}
	return url.Parse("https://example.test/" + object +
		"?method=" + method +
		"&expires=" + expires.String() +
		"&ct=" + url.QueryEscape(headers.Get("Content-Type")))
}

func newTestService(api *stubAPI) *Service {
	return &Service{
		api: api,
		cfg: Config{
			Endpoint:  "nyc3.digitaloceanspaces.com",
			Region:    "nyc3",
			AccessKey: "key",
			SecretKey: "secret",
			Bucket:    "portfolio",
			UseSSL:    true,
		},
		client: http.DefaultClient,
		now:    func() time.Time { return time.UnixMilli(1700000000000) },
	}
}

func TestConfigValidateListsAllMissing(t *testing.T) {
	err := Config{Endpoint: "x", Region: "y"}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "access key")
	require.Contains(t, err.Error(), "secret key")
	require.Contains(t, err.Error(), "bucket")
}

func TestStoreFileSetsHeadersAndURL(t *testing.T) {
	api := &stubAPI{}
	svc := newTestService(api)

	stored, err := svc.StoreFile(context.Background(), []byte("abc"), "portrait.jpg", "media-1", "image/jpeg")
	require.NoError(t, err)

	require.Equal(t, int64(3), api.putSize)
	require.Equal(t, "image/jpeg", api.putOpts.ContentType)
	require.Equal(t, "public, max-age=31536000", api.putOpts.CacheControl)
	require.Equal(t, "public-read", api.putOpts.UserMetadata["x-amz-acl"])

	require.Equal(t, api.putKey, stored.Key)
	require.True(t, strings.HasPrefix(stored.Key, "uploads/portrait-"))
	require.Equal(t, "https://portfolio.nyc3.digitaloceanspaces.com/"+stored.Key, stored.URL)
	require.Equal(t, int64(3), stored.Size)
}

func TestStoreFilePublicBaseURLOverride(t *testing.T) {
	api := &stubAPI{}
	svc := newTestService(api)
	svc.cfg.PublicBaseURL = "https://cdn.example.com/"

	stored, err := svc.StoreFile(context.Background(), []byte("x"), "a.png", "id", "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/"+stored.Key, stored.URL)
}

func TestStoreFileWrapsBackendError(t *testing.T) {
	api := &stubAPI{putErr: io.ErrUnexpectedEOF}
	svc := newTestService(api)

	_, err := svc.StoreFile(context.Background(), []byte("x"), "a.jpg", "id", "image/jpeg")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "put", storageErr.Op)
}

func TestGetFileInfoMissingKeyIsNotAnError(t *testing.T) {
	api := &stubAPI{statErr: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}}
	svc := newTestService(api)

	info, err := svc.GetFileInfo(context.Background(), "uploads/gone.jpg")
	require.NoError(t, err)
	require.Nil(t, info)

	exists, err := svc.FileExists(context.Background(), "uploads/gone.jpg")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestGetFileInfoFound(t *testing.T) {
	api := &stubAPI{statInfo: minio.ObjectInfo{Key: "uploads/a.jpg", Size: 1234}}
	svc := newTestService(api)

	info, err := svc.GetFileInfo(context.Background(), "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, info.Exists)
	require.Equal(t, int64(1234), info.Size)
}

func TestGetFileInfoBackendFailure(t *testing.T) {
	api := &stubAPI{statErr: minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}}
	svc := newTestService(api)

	_, err := svc.GetFileInfo(context.Background(), "uploads/a.jpg")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
}

func TestDeleteFileSwallowsErrors(t *testing.T) {
	api := &stubAPI{removeErr: io.ErrClosedPipe}
	svc := newTestService(api)

	svc.DeleteFile(context.Background(), "uploads/a.jpg")
	require.Equal(t, []string{"uploads/a.jpg"}, api.removed)

	// Empty key is a no-op, not a backend call.
	svc.DeleteFile(context.Background(), "")
	require.Len(t, api.removed, 1)
}

func TestListFilesEmptyPrefix(t *testing.T) {
	svc := newTestService(&stubAPI{})

	keys, err := svc.ListFiles(context.Background(), "uploads/none/")
	require.NoError(t, err)
	require.NotNil(t, keys)
	require.Empty(t, keys)
}

func TestListFilesCollectsKeys(t *testing.T) {
	api := &stubAPI{listed: []minio.ObjectInfo{{Key: "uploads/a.jpg"}, {Key: "uploads/b.jpg"}}}
	svc := newTestService(api)

	keys, err := svc.ListFiles(context.Background(), "uploads/")
	require.NoError(t, err)
	require.Equal(t, []string{"uploads/a.jpg", "uploads/b.jpg"}, keys)
}

func TestGeneratePresignedURLDefaultExpiry(t *testing.T) {
	svc := newTestService(&stubAPI{})

	u, err := svc.GeneratePresignedURL(context.Background(), "uploads/a.jpg", "image/jpeg", 0)
	require.NoError(t, err)
	require.Contains(t, u, "expires=1h0m0s")
	require.Contains(t, u, "method=PUT")
	require.Contains(t, u, url.QueryEscape("image/jpeg"))
}

func TestStoreFileFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	api := &stubAPI{}
	svc := newTestService(api)

	stored, err := svc.StoreFileFromURL(context.Background(), srv.URL, "remote.png", "media-9")
	require.NoError(t, err)
	require.Equal(t, "image/png", stored.MimeType)
	require.Equal(t, int64(len("png-bytes")), stored.Size)
}

func TestFetchFileRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	svc := newTestService(&stubAPI{})
	svc.maxFetch = 32

	_, _, err := svc.FetchFile(context.Background(), srv.URL)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, fetchErr.Error(), "larger than")
}

func TestStoreFileFromURLNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := newTestService(&stubAPI{})

	_, err := svc.StoreFileFromURL(context.Background(), srv.URL, "remote.png", "media-9")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

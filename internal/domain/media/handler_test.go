package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"portfolio/internal/database"
	"portfolio/internal/storage"
)

// inlineQueue processes synchronously so handler tests observe terminal
// states without a dispatcher.
type inlineQueue struct{ svc *Service }

func (q inlineQueue) Enqueue(id string) { _ = q.svc.Process(context.Background(), id) }

func setupRouter(t *testing.T) (*gin.Engine, *Service, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:media_handler_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Media{}))

	store := &stubStore{}
	svc := NewService(NewRepository(db), store)
	h := NewHandler(svc, inlineQueue{svc: svc})

	r := gin.New()
	v1 := r.Group("/api/v1")
	RegisterPublicRoutes(v1, h)
	RegisterProtectedRoutes(v1, h)
	return r, svc, store
}

func performRequest(r *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandlerUploadAndPollToCompletion(t *testing.T) {
	r, _, _ := setupRouter(t)

	buf, ct := multipartUpload(t, "portrait.jpg", encodeJPEG(t, 1200, 900), map[string]string{
		"title": "Portrait",
	})
	w := performRequest(r, http.MethodPost, "/api/v1/media", buf, ct)
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	id := body["data"].(map[string]interface{})["id"].(string)
	require.NotEmpty(t, id)

	// The inline queue already finished; one poll must show the terminal shape.
	w = performRequest(r, http.MethodGet, "/api/v1/media/"+id+"/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Nil(t, status.Status)
	require.False(t, status.Processing)
	require.False(t, status.Failed)
	require.NotNil(t, status.Data)
	require.Equal(t, "Portrait", status.Data.Title)
	require.NotEmpty(t, status.Data.MediumURL)
	require.NotEmpty(t, status.Data.ThumbnailURL)
}

func TestHandlerUploadWithoutFile(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/media", strings.NewReader(""), "multipart/form-data")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, false, decodeBody(t, w)["success"])
}

func TestHandlerUploadRejectsNonImage(t *testing.T) {
	r, _, _ := setupRouter(t)

	buf, ct := multipartUpload(t, "notes.txt", []byte("just some plain text here"), nil)
	w := performRequest(r, http.MethodPost, "/api/v1/media", buf, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	errObj := body["error"].(map[string]interface{})
	require.Equal(t, "INVALID_FILE", errObj["code"])
}

func TestHandlerStatusNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := performRequest(r, http.MethodGet, "/api/v1/media/nope/status", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerUploadFromURLFetchFailure(t *testing.T) {
	r, _, store := setupRouter(t)
	store.fetchErr = &storage.FetchError{URL: "https://example.com/img.jpg", StatusCode: http.StatusForbidden}

	w := performRequest(r, http.MethodPost, "/api/v1/media/from-url",
		strings.NewReader(`{"url":"https://example.com/img.jpg"}`), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	errObj := decodeBody(t, w)["error"].(map[string]interface{})
	require.Equal(t, "FETCH_FAILED", errObj["code"])
}

func TestHandlerUploadFromURLSuccess(t *testing.T) {
	r, _, store := setupRouter(t)
	store.fetchData = encodeJPEG(t, 600, 400)
	store.fetchMime = "image/jpeg"

	w := performRequest(r, http.MethodPost, "/api/v1/media/from-url",
		strings.NewReader(`{"url":"https://example.com/shot.jpg","title":"Remote"}`), "application/json")
	require.Equal(t, http.StatusAccepted, w.Code)

	id := decodeBody(t, w)["data"].(map[string]interface{})["id"].(string)

	w = performRequest(r, http.MethodGet, "/api/v1/media/"+id+"/status", nil, "")
	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Nil(t, status.Status)
	require.NotNil(t, status.Data)
}

func TestHandlerRetryConflictOnCompleted(t *testing.T) {
	r, svc, _ := setupRouter(t)
	ctx := context.Background()

	m, err := svc.Upload(ctx, "p.jpg", encodeJPEG(t, 300, 200), Metadata{})
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, m.ID))

	w := performRequest(r, http.MethodPost, "/api/v1/media/"+m.ID+"/retry", nil, "")
	require.Equal(t, http.StatusConflict, w.Code)

	errObj := decodeBody(t, w)["error"].(map[string]interface{})
	require.Equal(t, "NOT_RETRYABLE", errObj["code"])
}

func TestHandlerRetryRunsFailedItem(t *testing.T) {
	r, svc, store := setupRouter(t)
	ctx := context.Background()
	store.failOnName = "-medium"

	m, err := svc.Upload(ctx, "p.jpg", encodeJPEG(t, 900, 600), Metadata{})
	require.NoError(t, err)
	require.Error(t, svc.Process(ctx, m.ID))

	store.failOnName = ""
	w := performRequest(r, http.MethodPost, "/api/v1/media/"+m.ID+"/retry", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
}

func TestHandlerRetryNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := performRequest(r, http.MethodPost, "/api/v1/media/missing/retry", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerUpdateMetadata(t *testing.T) {
	r, svc, _ := setupRouter(t)
	ctx := context.Background()

	m, err := svc.Upload(ctx, "p.jpg", encodeJPEG(t, 300, 200), Metadata{})
	require.NoError(t, err)

	w := performRequest(r, http.MethodPatch, "/api/v1/media/"+m.ID,
		strings.NewReader(`{"title":"Renamed","tags":["a","b"]}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
}

func TestHandlerDelete(t *testing.T) {
	r, svc, _ := setupRouter(t)
	ctx := context.Background()

	m, err := svc.Upload(ctx, "p.jpg", encodeJPEG(t, 300, 200), Metadata{})
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, m.ID))

	w := performRequest(r, http.MethodDelete, "/api/v1/media/"+m.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/api/v1/media/"+m.ID+"/status", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerList(t *testing.T) {
	r, svc, _ := setupRouter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(ctx, fmt.Sprintf("p%d.jpg", i), encodeJPEG(t, 100, 100), Metadata{})
		require.NoError(t, err)
	}

	w := performRequest(r, http.MethodGet, "/api/v1/media", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	items := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, items, 3)
}

func TestHandlerPresign(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/media/presign",
		strings.NewReader(`{"filename":"huge.jpg","mime_type":"image/jpeg"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	require.Contains(t, data["key"].(string), "uploads/huge-")
	require.Contains(t, data["upload_url"].(string), "presigned.example.com")
}

func TestHandlerPresignMissingFields(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := performRequest(r, http.MethodPost, "/api/v1/media/presign",
		strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

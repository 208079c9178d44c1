package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/conf"
	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/content/types"
	"github.com/cartelera/signage-backend/internal/pkg/sse"
	"github.com/cartelera/signage-backend/internal/pkg/workerpool"
)

// memStore is an in-memory BlobStore for handler tests
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) List(ctx context.Context, namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := namespace + "/"
	var keys []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, strings.TrimPrefix(name, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStore) Exists(ctx context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[namespace+"/"+key]
	return ok, nil
}

func (s *memStore) Write(ctx context.Context, namespace, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[namespace+"/"+key] = data
	return nil
}

func (s *memStore) Read(ctx context.Context, namespace, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[namespace+"/"+key]
	if !ok {
		return nil, biz.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Copy(ctx context.Context, srcNamespace, srcKey, dstNamespace, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[srcNamespace+"/"+srcKey]
	if !ok {
		return biz.ErrBlobNotFound
	}
	s.objects[dstNamespace+"/"+dstKey] = data
	return nil
}

func (s *memStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := namespace + "/" + key
	if _, ok := s.objects[name]; !ok {
		return biz.ErrBlobNotFound
	}
	delete(s.objects, name)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *biz.ContentUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	hub := sse.NewHub()

	pool, err := workerpool.New(&workerpool.Config{Workers: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	uc := biz.NewContentUseCase(
		biz.NewStageRegistry(store, "http://localhost:3001", nil),
		biz.NewUploadLedger(),
		store,
		NewHubPublisher(hub),
		pool,
		nil,
	)

	cfg := conf.ContentConfig{
		MaxUploadBytes:   1 << 20,
		AllowedMIMETypes: []string{"image/png", "image/jpeg"},
		EventBufferSize:  16,
	}

	svc := NewContentService(uc, store, hub, cfg, nil)

	router := gin.New()
	api := router.Group("/api")
	svc.RegisterRoutes(api)
	api.GET("/health", svc.Health)
	svc.RegisterFileRoutes(router)

	return router, uc
}

func multipartUpload(t *testing.T, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func doRequest(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadOne(t *testing.T, router *gin.Engine) types.ContentRecord {
	t.Helper()

	body, contentType := multipartUpload(t, "banner.png", "image/png", []byte("data"))
	w := doRequest(router, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data types.ContentRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestUpload(t *testing.T) {
	router, uc := newTestRouter(t)

	rec := uploadOne(t, router)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "banner.png", rec.Title)

	require.Len(t, uc.Registry().Snapshot(types.StageUploads), 1)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/upload", strings.NewReader(""), "multipart/form-data")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsDisallowedMIME(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, "report.pdf", "application/pdf", []byte("data"))
	w := doRequest(router, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUploads(t *testing.T) {
	router, _ := newTestRouter(t)

	uploadOne(t, router)
	w := doRequest(router, http.MethodGet, "/api/images", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []types.ContentRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestPromoteAndStatusFlow(t *testing.T) {
	router, uc := newTestRouter(t)

	rec := uploadOne(t, router)

	// Promote into monitoring reusing the upload id.
	payload, _ := json.Marshal(map[string]interface{}{"id": rec.ID})
	w := doRequest(router, http.MethodPost, "/api/monitoring/images", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)

	var promoted struct {
		Data types.ContentRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &promoted))
	assert.Equal(t, rec.ID, promoted.Data.ID)

	// Patch its status.
	payload, _ = json.Marshal(map[string]string{"status": "paused"})
	w = doRequest(router, http.MethodPatch, "/api/monitoring/images/"+rec.ID, bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	stored, ok := uc.Registry().Find(types.StageMonitoring, rec.ID)
	require.True(t, ok)
	assert.Equal(t, "paused", stored.Status)

	// Ledger surface reflects the transfer.
	w = doRequest(router, http.MethodGet, "/api/monitoring/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Data []types.UploadStatusEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.Data, 1)
	assert.Equal(t, "paused", status.Data[0].Status)
}

func TestPromoteUnknownSourceReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	payload, _ := json.Marshal(map[string]string{"id": "missing"})
	w := doRequest(router, http.MethodPost, "/api/monitoring/images", bytes.NewReader(payload), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromoteRequiresID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/monitoring/images", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishToMobile(t *testing.T) {
	router, uc := newTestRouter(t)

	rec := uploadOne(t, router)

	payload, _ := json.Marshal(map[string]string{"id": rec.ID})
	w := doRequest(router, http.MethodPost, "/api/monitoring/images", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)

	payload, _ = json.Marshal(map[string]string{"imageId": rec.ID})
	w = doRequest(router, http.MethodPost, "/api/mobile/publish", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	mobile := uc.Registry().Snapshot(types.StageMobile)
	require.Len(t, mobile, 1)
	assert.True(t, strings.HasPrefix(mobile[0].ID, "mobile_"))
}

func TestDeleteBatch(t *testing.T) {
	router, uc := newTestRouter(t)

	rec := uploadOne(t, router)
	payload, _ := json.Marshal(map[string]string{"id": rec.ID})
	w := doRequest(router, http.MethodPost, "/api/monitoring/images", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)

	payload, _ = json.Marshal(map[string][]string{"ids": {rec.ID, "missing"}})
	w = doRequest(router, http.MethodPost, "/api/monitoring/delete-multiple", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data types.BatchRemoveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.SuccessCount)
	assert.Equal(t, 2, resp.Data.Total)

	assert.Empty(t, uc.Registry().Snapshot(types.StageMonitoring))
}

func TestDeleteUpload(t *testing.T) {
	router, uc := newTestRouter(t)

	rec := uploadOne(t, router)
	w := doRequest(router, http.MethodDelete, "/api/images/"+rec.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, uc.Registry().Snapshot(types.StageUploads))

	w = doRequest(router, http.MethodDelete, "/api/images/"+rec.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeFile(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadOne(t, router)
	key := strings.TrimPrefix(rec.Path, "uploads/")

	w := doRequest(router, http.MethodGet, "/files/uploads/"+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestServeFileNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/files/uploads/1-missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/files/bogus/1-missing.png", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

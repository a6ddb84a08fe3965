package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/handlers"
)

type stubVideoRepo struct {
	videos map[string]*video.Video
}

func (s *stubVideoRepo) Create(context.Context, *video.Video) error { return nil }

func (s *stubVideoRepo) GetByID(_ context.Context, id string) (*video.Video, error) {
	if v, ok := s.videos[id]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, video.ErrNotFound
}

func (s *stubVideoRepo) List(context.Context, video.ListQuery) ([]*video.Video, error) {
	return nil, nil
}
func (s *stubVideoRepo) IncrementViews(context.Context, string) error       { return nil }
func (s *stubVideoRepo) SetThumbnail(context.Context, string, string) error { return nil }
func (s *stubVideoRepo) Delete(context.Context, string) error               { return nil }

type stubStorage struct{}

func (stubStorage) Save(context.Context, string, string, io.Reader, int64) (*video.StoredObject, error) {
	return nil, nil
}
func (stubStorage) Remove(context.Context, string) error { return nil }
func (stubStorage) IsLocal() bool                        { return true }

type stubThumbnailer struct{}

func (stubThumbnailer) Extract(context.Context, string, string) (string, error) { return "", nil }

type stubEnqueuer struct{}

func (stubEnqueuer) Enqueue(string) {}

type dirResolver struct {
	dir string
}

func (r dirResolver) Resolve(ref string) (string, error) {
	return filepath.Join(r.dir, filepath.Base(ref)), nil
}

func newStreamRouter(t *testing.T, repo *stubVideoRepo, dir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{MaxUploadBytes: 1 << 20, LocalStoragePath: dir}
	svc := video.NewService(cfg, repo, stubStorage{}, stubThumbnailer{}, stubEnqueuer{}, zerolog.Nop())
	handler := handlers.NewStreamHandler(svc, dirResolver{dir: dir}, zerolog.Nop())

	router := gin.New()
	router.GET("/api/videos/:id/stream", handler.Stream)
	return router
}

func TestStream_FullFileWithoutRange(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("a"), 1000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video-1.mp4"), content, 0o644))

	repo := &stubVideoRepo{videos: map[string]*video.Video{
		"vid_1": {ID: "vid_1", StorageRef: "uploads/video-1.mp4"},
	}}
	router := newStreamRouter(t, repo, dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/vid_1/stream", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Len(t, w.Body.Bytes(), 1000)
}

func TestStream_RangeRequests(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video-1.mp4"), content, 0o644))

	repo := &stubVideoRepo{videos: map[string]*video.Video{
		"vid_1": {ID: "vid_1", StorageRef: "uploads/video-1.mp4"},
	}}
	router := newStreamRouter(t, repo, dir)

	tests := []struct {
		name        string
		rangeHeader string
		wantStatus  int
		wantRange   string
		wantLen     int
		wantFirst   byte
	}{
		{
			name:        "first hundred bytes",
			rangeHeader: "bytes=0-99",
			wantStatus:  http.StatusPartialContent,
			wantRange:   "bytes 0-99/1000",
			wantLen:     100,
			wantFirst:   content[0],
		},
		{
			name:        "open ended tail",
			rangeHeader: "bytes=900-",
			wantStatus:  http.StatusPartialContent,
			wantRange:   "bytes 900-999/1000",
			wantLen:     100,
			wantFirst:   content[900],
		},
		{
			name:        "end clamped to file size",
			rangeHeader: "bytes=990-5000",
			wantStatus:  http.StatusPartialContent,
			wantRange:   "bytes 990-999/1000",
			wantLen:     10,
			wantFirst:   content[990],
		},
		{
			name:        "start beyond file size",
			rangeHeader: "bytes=1000-",
			wantStatus:  http.StatusRequestedRangeNotSatisfiable,
		},
		{
			name:        "malformed range",
			rangeHeader: "bytes=abc-def",
			wantStatus:  http.StatusRequestedRangeNotSatisfiable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/videos/vid_1/stream", nil)
			req.Header.Set("Range", tt.rangeHeader)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusPartialContent {
				return
			}
			assert.Equal(t, tt.wantRange, w.Header().Get("Content-Range"))
			assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
			assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
			body := w.Body.Bytes()
			require.Len(t, body, tt.wantLen)
			assert.Equal(t, tt.wantFirst, body[0])
		})
	}
}

func TestStream_MissingFileIsServerError(t *testing.T) {
	dir := t.TempDir()
	repo := &stubVideoRepo{videos: map[string]*video.Video{
		"vid_1": {ID: "vid_1", StorageRef: "uploads/gone.mp4"},
	}}
	router := newStreamRouter(t, repo, dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/vid_1/stream", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStream_UnknownVideoIsNotFound(t *testing.T) {
	router := newStreamRouter(t, &stubVideoRepo{videos: map[string]*video.Video{}}, t.TempDir())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/vid_missing/stream", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream_RemoteRedirects(t *testing.T) {
	repo := &stubVideoRepo{videos: map[string]*video.Video{
		"vid_1": {ID: "vid_1", StorageRef: "https://bucket.s3.us-west-2.amazonaws.com/videos/video-1.mp4"},
	}}
	router := newStreamRouter(t, repo, t.TempDir())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/vid_1/stream", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://bucket.s3.us-west-2.amazonaws.com/videos/video-1.mp4", w.Header().Get("Location"))
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einkcast/einkcast/pkg/logging"
	"github.com/einkcast/einkcast/pkg/scheduler"
	"github.com/einkcast/einkcast/pkg/status"
	"github.com/einkcast/einkcast/pkg/storage"
)

func newTestHandler(t *testing.T) (http.Handler, *storage.FileStore, *status.MemorySink) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	sink := status.NewMemorySink()
	return Handler(store, sink, logging.New("production")), store, sink
}

func TestHandler_ServesLatestImage(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	_, err := store.Save("kitchen", []byte("png-bytes"), "png")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen.png", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestHandler_UnknownImage(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.png", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RejectsTraversal(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/..%2fsecret", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Healthz(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandler_Outcomes(t *testing.T) {
	handler, _, sink := newTestHandler(t)

	sink.Record(context.Background(), scheduler.Outcome{
		Job:     "kitchen",
		Success: true,
		URL:     "/kitchen.png",
		At:      time.Now(),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outcomes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var outcomes []scheduler.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "kitchen", outcomes[0].Job)
	assert.True(t, outcomes[0].Success)
}

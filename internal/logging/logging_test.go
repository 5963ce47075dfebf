package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	log, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New("", false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))

	_, err = New("loud", false)
	assert.Error(t, err)
}

type recordingMetrics struct{ routes, statuses []string }

func (r *recordingMetrics) ObserveRequest(method, route, status string, _ float64) {
	r.routes = append(r.routes, method+" "+route)
	r.statuses = append(r.statuses, status)
}

func TestRequestsMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := &recordingMetrics{}

	r := chi.NewRouter()
	r.Use(Requests(zap.New(core), m))
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })

	for _, path := range []string{"/sessions/abc", "/ok"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{"GET /sessions/{id}", "GET /ok"}, m.routes)
	assert.Equal(t, []string{"418", "200"}, m.statuses)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "/sessions/{id}", logs.All()[0].ContextMap()["route"])
}

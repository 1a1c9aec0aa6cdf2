package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

type stubHistory struct {
	run domain.RunRecord
	err error
}

func (s stubHistory) Last(context.Context) (domain.RunRecord, error) { return s.run, s.err }

func serve(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewServer(zerolog.Nop(), stubHistory{err: domain.ErrNoRuns}, func() bool { return true })
	rec := serve(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLastRun(t *testing.T) {
	run := domain.RunRecord{Session: domain.Session{ID: "r1", Username: "alice"}, State: domain.StateDone}
	srv := NewServer(zerolog.Nop(), stubHistory{run: run}, func() bool { return true })

	rec := serve(t, srv, http.MethodGet, "/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.Session.ID)
	assert.Equal(t, domain.StateDone, got.State)
}

func TestLastRunMissingAndFailing(t *testing.T) {
	srv := NewServer(zerolog.Nop(), stubHistory{err: domain.ErrNoRuns}, func() bool { return true })
	assert.Equal(t, http.StatusNotFound, serve(t, srv, http.MethodGet, "/runs/last").Code)

	srv = NewServer(zerolog.Nop(), stubHistory{err: errors.New("redis down")}, func() bool { return true })
	assert.Equal(t, http.StatusInternalServerError, serve(t, srv, http.MethodGet, "/runs/last").Code)
}

func TestTriggerRun(t *testing.T) {
	pending := false
	trigger := func() bool {
		if pending {
			return false
		}
		pending = true
		return true
	}
	srv := NewServer(zerolog.Nop(), stubHistory{err: domain.ErrNoRuns}, trigger)

	assert.Equal(t, http.StatusAccepted, serve(t, srv, http.MethodPost, "/runs").Code)
	assert.Equal(t, http.StatusConflict, serve(t, srv, http.MethodPost, "/runs").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(zerolog.Nop(), stubHistory{err: domain.ErrNoRuns}, func() bool { return true })
	assert.Equal(t, http.StatusOK, serve(t, srv, http.MethodGet, "/metrics").Code)
}

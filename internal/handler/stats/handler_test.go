package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	throwModel "github.com/zhouzirui/insight-dice/backend/internal/model/throw"
	"github.com/zhouzirui/insight-dice/backend/internal/repository"
)

type brokenReader struct{}

func (brokenReader) Stats(context.Context, time.Time) (throwModel.Stats, error) {
	return throwModel.Stats{}, errors.New("db gone")
}

func serve(t *testing.T, reader Reader, adminID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(reader, config.AdminConfig{IDs: []string{"42"}}, nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	if adminID != "" {
		req.Header.Set(AdminHeader, adminID)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStatsRequiresAdmin(t *testing.T) {
	repo := repository.NewMemory()
	assert.Equal(t, http.StatusForbidden, serve(t, repo, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(t, repo, "7").Code)
}

func TestStatsForAdmin(t *testing.T) {
	repo := repository.NewMemory()
	spread, err := throwModel.NewSpread([]string{"a", "b", "c", "d", "e", "f"})
	require.NoError(t, err)
	_, err = repo.CreateThrow(context.Background(), "u1", "s", spread)
	require.NoError(t, err)

	resp := serve(t, repo, "42")
	require.Equal(t, http.StatusOK, resp.Code)

	var stats throwModel.Stats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.Throws)
	assert.Equal(t, 1, stats.ActiveUsers7d)
}

func TestStatsStorageFailure(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, brokenReader{}, "42").Code)
}

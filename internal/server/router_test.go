package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/abduss/bitbeem/internal/blob"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, db Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blobs := blob.NewFilesystem(filepath.Join(t.TempDir(), "media_store"))
	require.NoError(t, blobs.Ensure(context.Background()))

	return NewRouter(Dependencies{
		Config: config.Config{Metrics: config.MetricsConfig{PrometheusPath: "/metrics"}},
		DB:     db,
		Blobs:  blobs,
		Log:    zap.NewNop(),
	})
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRootAndLiveness(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	rr := get(router, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "running")

	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)
}

func TestReadiness(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(newTestRouter(t, fakePinger{}), "/health/ready").Code)

	rr := get(newTestRouter(t, fakePinger{err: errors.New("down")}), "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "postgres")
}

func TestMetricsEndpoint(t *testing.T) {
	rr := get(newTestRouter(t, fakePinger{}), "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
}

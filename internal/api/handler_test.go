package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cdc-generator/internal/generator"
	"cdc-generator/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct {
	ready bool
	stats generator.Stats
}

func (f *fakeStatus) Ready() bool            { return f.ready }
func (f *fakeStatus) Stats() generator.Stats { return f.stats }

func newRouter(status StatusProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(status).SetupRoutes(router)
	return router
}

func serve(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := serve(newRouter(&fakeStatus{}), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessFollowsSeeding(t *testing.T) {
	status := &fakeStatus{}
	router := newRouter(status)

	w := serve(router, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	status.ready = true
	w = serve(router, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusReturnsStats(t *testing.T) {
	status := &fakeStatus{
		ready: true,
		stats: generator.Stats{
			RunID:  "run-42",
			Ready:  true,
			Totals: models.KindCounts{Inserts: 398, Updates: 1, Deletes: 1},
			Tables: []generator.TableStats{
				{Table: models.TableSales, Batches: 2, TrackedKeys: 399},
			},
		},
	}

	w := serve(newRouter(status), "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var got generator.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, 400, got.Totals.Total())
	require.Len(t, got.Tables, 1)
	assert.Equal(t, models.TableSales, got.Tables[0].Table)
	assert.Equal(t, 399, got.Tables[0].TrackedKeys)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(&fakeStatus{})
	serve(router, "/health")

	w := serve(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

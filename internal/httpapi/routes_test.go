package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instagibbs/anticycle/internal/cycle"
	"github.com/instagibbs/anticycle/internal/dashboard"
)

type fakeStats struct{ s cycle.Stats }

func (f fakeStats) Stats() cycle.Stats { return f.s }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(fakeStats{}, dashboard.NewHub())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusReflectsEngineStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(fakeStats{s: cycle.Stats{
		DummyCacheSize:     3,
		ProtectedCacheSize: 1,
		TopblockRate:       "50000.000",
		EventCount:         42,
	}}, dashboard.NewHub())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eventCount":42`)
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"leave-expiry/internal/middleware"
	"leave-expiry/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDAndContextLogger(t *testing.T) {
	var gotRID, gotActor string
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		gotRID = contextutil.RequestID(c.Request.Context())
		gotActor = contextutil.ActorID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("propagates incoming ids", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "rid-1")
		req.Header.Set(middleware.ActorIDHeader, "hr-7")
		r.ServeHTTP(w, req)

		assert.Equal(t, "rid-1", gotRID)
		assert.Equal(t, "hr-7", gotActor)
		assert.Equal(t, "rid-1", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, gotRID)
		assert.Empty(t, gotActor)
		assert.Equal(t, gotRID, w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestRateLimitByCaller(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitByCaller(0.001, 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(actor string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != "" {
			req.Header.Set(middleware.ActorIDHeader, actor)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))
	assert.Equal(t, http.StatusOK, call(""))
	assert.Equal(t, http.StatusTooManyRequests, call(""))
}

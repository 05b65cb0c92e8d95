package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(counter RateCounter, max int) *gin.Engine {
	r := gin.New()
	r.POST("/checkout", APIRateLimit(counter, "checkout", max), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIRateLimit_WithoutCounter(t *testing.T) {
	r := limitedRouter(nil, 1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "1.2.3.4").Code)
	}
}

func TestAPIRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	r := limitedRouter(&cache.Redis{Client: client}, 2)

	w := hit(r, "1.2.3.4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(r, "1.2.3.4").Code)

	w = hit(r, "1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(r, "5.6.7.8").Code, "limit is per client IP")

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "1.2.3.4").Code)
}

type brokenCounter struct{}

func (brokenCounter) IncrementRateLimit(string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestAPIRateLimit_CounterErrorLetsRequestThrough(t *testing.T) {
	r := limitedRouter(brokenCounter{}, 1)
	assert.Equal(t, http.StatusOK, hit(r, "1.2.3.4").Code)
	assert.Equal(t, http.StatusOK, hit(r, "1.2.3.4").Code)
}

package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateCounter est le compteur partagé (cache.Redis)
type RateCounter interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
}

// APIRateLimit limite le nombre de requêtes par IP et par minute sur une route.
// Sans compteur (Redis non configuré) la limite est désactivée.
func APIRateLimit(counter RateCounter, name string, maxPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || maxPerMinute <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate:%s:%s", name, c.ClientIP())
		count, err := counter.IncrementRateLimit(key, time.Minute)
		if err != nil {
			// Redis indisponible : on laisse passer plutôt que de bloquer les paiements
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}

		remaining := int64(maxPerMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxPerMinute))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(maxPerMinute) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans une minute",
				"retry_after": int(time.Minute.Seconds()),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

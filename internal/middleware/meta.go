package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	startedAtKey = "request_started_at"
)

// WithResponseMeta gives each API request an empty meta map for the envelope
// and records when the request started.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startedAtKey, time.Now())
		c.Set(metaKey, map[string]interface{}{})
		c.Next()
	}
}

// Meta returns the request's meta map, creating it if WithResponseMeta did not run.
func Meta(c *gin.Context) map[string]interface{} {
	if value, ok := c.Get(metaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(metaKey, meta)
	return meta
}

// SetCacheHit marks whether the payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	Meta(c)["cache_hit"] = hit
}

// StampElapsed writes processing_time_ms measured from the request start, or
// from since when the request carries no start time.
func StampElapsed(c *gin.Context, since time.Time) {
	if value, ok := c.Get(startedAtKey); ok {
		if started, ok := value.(time.Time); ok {
			since = started
		}
	}
	Meta(c)["processing_time_ms"] = time.Since(since).Milliseconds()
}

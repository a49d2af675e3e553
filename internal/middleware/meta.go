package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	metaStartKey    = "response_meta_start"
	cacheHitKey     = "cache_hit"
)

// WithResponseMeta prepares the metadata map that handlers attach to the
// response envelope and fills in processing time and request id.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseMetaKey, meta)
		c.Set(metaStartKey, start)
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// SetMeta stores a single metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// ExtractMeta returns the metadata stored on the context, stamped with the
// time spent since WithResponseMeta ran.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := storedMeta(c)
	if meta == nil {
		return nil
	}
	if start, ok := c.Get(metaStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func storedMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := storedMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

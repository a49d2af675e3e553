package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sprs-api/pkg/config"
)

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	r := gin.New()
	r.Use(GinMiddleware(l))
	r.GET("/ok", func(c *gin.Context) {
		c.Set(UserIDKey, "user-1")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, ServiceName: "sprs-api", Log: config.LogConfig{Level: "loud", Format: "console"}}
	l, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/internal/service"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/logger"
	"github.com/noah-isme/sprs-api/pkg/middleware/requestid"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (v validatorStub) ValidateToken(string) (*models.JWTClaims, error) {
	return v.claims, v.err
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func perform(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	r := gin.New()
	r.GET("/me", JWT(validatorStub{claims: claims}), func(c *gin.Context) {
		assert.Equal(t, "stu-1", c.GetString(logger.UserIDKey))
		value, _ := c.Get(ContextUserKey)
		assert.Equal(t, claims, value)
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Token abc"}).Code)
	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer abc"}).Code)

	rejected := gin.New()
	rejected.GET("/me", JWT(validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusUnauthorized, perform(rejected, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bad"}).Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	admin := gin.New()
	admin.GET("/admin", withClaims(&models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}), RequireRoles(models.RoleAdmin), handler)
	assert.Equal(t, http.StatusNoContent, perform(admin, http.MethodGet, "/admin", nil).Code)

	student := gin.New()
	student.GET("/admin", withClaims(&models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}), RequireRoles(models.RoleAdmin), handler)
	w := perform(student, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrForbidden.Code)

	anonymous := gin.New()
	anonymous.GET("/admin", RequireRoles(models.RoleAdmin), handler)
	assert.Equal(t, http.StatusUnauthorized, perform(anonymous, http.MethodGet, "/admin", nil).Code)
}

func TestAuditRecordsOnlySuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audits := &auditStub{}
	claims := &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}

	r := gin.New()
	r.PUT("/users/:id/activate", withClaims(claims), Audit(audits, models.AuditActionUserActivate, models.AuditResourceUser), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.OK(c, "ok", nil)
	})

	perform(r, http.MethodPut, "/users/stu-1/activate", nil)
	w := perform(r, http.MethodPut, "/users/missing/activate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, audits.logs, 1)
	log := audits.logs[0]
	assert.Equal(t, models.AuditActionUserActivate, log.Action)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "stu-1", *log.ResourceID)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "adm-1", *log.UserID)
}

func TestMetricsMiddlewareObservesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/requests/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/requests/abc", nil)
	perform(r, http.MethodGet, "/requests/def", nil)
	perform(r, http.MethodGet, "/nowhere", nil)
	perform(r, http.MethodGet, "/metrics", nil)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, paths["/requests/:id"])
	assert.Equal(t, 1.0, paths[unmatchedRoute])
	assert.NotContains(t, paths, "/metrics")
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}

	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	r.GET("/dashboard", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/dashboard", nil)

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.NotEmpty(t, meta["request_id"])
	assert.Contains(t, meta, "processing_time_ms")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	assert.Nil(t, ExtractMeta(c))
	SetMeta(c, "k", "v")
	assert.Equal(t, "v", ExtractMeta(c)["k"])
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sprs-api/internal/middleware"
	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type responseEnvelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newTestContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var payload []byte
	if body != nil {
		switch v := body.(type) {
		case string:
			payload = []byte(v)
		default:
			payload, _ = json.Marshal(v)
		}
	}
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(payload))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "stu-1", Username: "asha", Role: models.RoleStudent}
}

func employeeClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "emp-1", Username: "ravi", Role: models.RoleEmployee}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Username: "meena", Role: models.RoleAdmin}
}

package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/internal/service"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type letterRequestSource interface {
	Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.Request, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.Request, error)
}

type letterExporter interface {
	LetterPDF(req *models.Request) ([]byte, error)
	LetterLink(ctx context.Context, req *models.Request) (*service.ExportResult, error)
	OpenSigned(token string) (*os.File, string, error)
	Register(requests []models.Request) ([]byte, error)
}

var registerStatuses = []models.RequestStatus{
	models.RequestStatusPending,
	models.RequestStatusAccepted,
	models.RequestStatusRejected,
	models.RequestStatusCompleted,
}

// LetterHandler serves printable letters and the request register.
type LetterHandler struct {
	requests letterRequestSource
	exporter letterExporter
}

// NewLetterHandler constructs the handler.
func NewLetterHandler(requests letterRequestSource, exporter letterExporter) *LetterHandler {
	return &LetterHandler{requests: requests, exporter: exporter}
}

// PDF godoc
// @Summary Render a request letter as PDF
// @Tags Admin
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} file
// @Router /admin/requests/{id}/letter.pdf [get]
func (h *LetterHandler) PDF(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.exporter.LetterPDF(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=letter_%s.pdf", req.ID))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// Link godoc
// @Summary Issue a signed download link for a completed letter
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/requests/{id}/letter-link [get]
func (h *LetterHandler) Link(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.LetterLink(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "letter link", dto.LetterLinkResponse{
		URL:       result.URL,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Download godoc
// @Summary Download an archived letter through a signed token
// @Tags Letters
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /letters/download [get]
func (h *LetterHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.exporter.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// Export godoc
// @Summary Export the request register as CSV
// @Tags Admin
// @Produce text/csv
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Router /admin/requests/export [get]
func (h *LetterHandler) Export(c *gin.Context) {
	if _, ok := requireClaims(c); !ok {
		return
	}
	statuses := registerStatuses
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		statuses = []models.RequestStatus{models.RequestStatus(strings.ToUpper(raw))}
	}

	var rows []models.Request
	for _, status := range statuses {
		items, err := h.requests.ListByStatus(c.Request.Context(), status)
		if err != nil {
			response.Error(c, err)
			return
		}
		rows = append(rows, items...)
	}
	payload, err := h.exporter.Register(rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=requests.csv")
	c.Data(http.StatusOK, "text/csv", payload)
}

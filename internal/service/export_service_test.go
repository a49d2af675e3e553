package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/export"
	"github.com/noah-isme/sprs-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", InstitutionName: "Govt Polytechnic"}
	svc := NewExportService(store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func completedRequest() *models.Request {
	letter := RenderLetter(models.RequestTypeOuting, sampleForm(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	printedAt := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	return &models.Request{
		ID:              "req-1",
		StudentID:       "stu-1",
		RequestType:     models.RequestTypeOuting,
		FormData:        sampleForm(),
		GeneratedLetter: &letter,
		Status:          models.RequestStatusCompleted,
		Priority:        models.PriorityMedium,
		EmployeeReview:  &models.EmployeeReview{ReviewerID: "emp-1", Action: models.ReviewActionAccepted},
		AdminReview:     &models.AdminReview{ReviewerID: "adm-1", Printed: true, PrintedAt: &printedAt},
		CreatedAt:       time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestExportServiceLetterPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	payload, err := svc.LetterPDF(completedRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))

	_, err = svc.LetterPDF(&models.Request{ID: "draft", Status: models.RequestStatusDraft})
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestExportServiceArchiveRequiresCompleted(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	req := completedRequest()
	req.Status = models.RequestStatusAccepted

	_, err := svc.Archive(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	req.Status = models.RequestStatusCompleted
	relPath, err := svc.Archive(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, store.Exists(relPath))
}

func TestExportServiceLetterLinkRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.LetterLink(context.Background(), completedRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/letters/download?token="))
	assert.True(t, result.ExpiresAt.After(time.Now()))

	parsed, err := url.Parse(result.URL)
	require.NoError(t, err)
	file, name, err := svc.OpenSigned(parsed.Query().Get("token"))
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "letter_req-1.pdf", name)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, _, err = svc.OpenSigned(result.Token + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestExportServiceRegister(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	draft := models.Request{ID: "req-2", StudentID: "stu-2", RequestType: models.RequestTypeFee, Status: models.RequestStatusDraft, Priority: models.PriorityLow}

	payload, err := svc.Register([]models.Request{*completedRequest(), draft})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Request ID,Student ID,Student Name"))
	assert.Contains(t, lines[1], "req-1,stu-1,Asha Rao,21CS001,CSE,A,OUTING,COMPLETED,MEDIUM,emp-1,2024-03-02T10:00:00Z")
	assert.Contains(t, lines[2], "req-2,stu-2,,,,,FEE,DRAFT,LOW,,,")
}

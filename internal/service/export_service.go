package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/export"
	"github.com/noah-isme/sprs-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Exists(filename string) bool
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type letterRenderer interface {
	RenderLetter(letter export.Letter) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	InstitutionName string
}

// ExportResult describes a signed download link for a stored letter.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportService renders printable letters and the request register, and
// archives completed letters behind signed links.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     letterRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf letterRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// LetterPDF renders the generated letter of a submitted request.
func (s *ExportService) LetterPDF(req *models.Request) ([]byte, error) {
	if req == nil || req.GeneratedLetter == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has no generated letter")
	}
	footer := fmt.Sprintf("Request %s | %s", req.ID, req.Status)
	if req.AdminReview != nil && req.AdminReview.PrintedAt != nil {
		footer = fmt.Sprintf("%s | printed %s", footer, req.AdminReview.PrintedAt.UTC().Format(letterDateLayout))
	}
	payload, err := s.pdf.RenderLetter(export.Letter{
		Letterhead: s.cfg.InstitutionName,
		Body:       *req.GeneratedLetter,
		Footer:     footer,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render letter")
	}
	return payload, nil
}

// Archive stores the letter PDF of a completed request and returns its path.
func (s *ExportService) Archive(ctx context.Context, req *models.Request) (string, error) {
	if req == nil || req.Status != models.RequestStatusCompleted {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "only completed requests are archived")
	}
	payload, err := s.LetterPDF(req)
	if err != nil {
		return "", err
	}
	relPath, err := s.storage.Save(letterFilename(req.ID), payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive letter")
	}
	s.logger.Info("letter archived", zap.String("request_id", req.ID), zap.String("path", relPath))
	return relPath, nil
}

// LetterLink returns a signed download link for a completed request's
// letter, archiving it first when needed.
func (s *ExportService) LetterLink(ctx context.Context, req *models.Request) (*ExportResult, error) {
	if req == nil || req.Status != models.RequestStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "letter links are only issued for completed requests")
	}
	relPath := letterFilename(req.ID)
	if !s.storage.Exists(relPath) {
		var err error
		if relPath, err = s.Archive(ctx, req); err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.signer.Generate(req.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign letter link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/letters/download?token=%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// OpenSigned validates a download token and opens the referenced letter.
func (s *ExportService) OpenSigned(token string) (*os.File, string, error) {
	requestID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "letter not found")
	}
	return file, letterFilename(requestID), nil
}

var registerHeaders = []string{"Request ID", "Student ID", "Student Name", "Roll No", "Branch", "Section", "Type", "Status", "Priority", "Reviewed By", "Printed At", "Created At"}

// Register renders the request register as CSV, one record per request in
// the order given.
func (s *ExportService) Register(requests []models.Request) ([]byte, error) {
	records := make([][]string, 0, len(requests))
	for _, req := range requests {
		var reviewer, printedAt string
		if req.EmployeeReview != nil {
			reviewer = req.EmployeeReview.ReviewerID
		}
		if req.AdminReview != nil && req.AdminReview.PrintedAt != nil {
			printedAt = req.AdminReview.PrintedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{
			req.ID,
			req.StudentID,
			req.FormData.Name,
			req.FormData.RollNo,
			req.FormData.Branch,
			req.FormData.Section,
			string(req.RequestType),
			string(req.Status),
			string(req.Priority),
			reviewer,
			printedAt,
			req.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	payload, err := s.csv.Render(export.Table{Columns: registerHeaders, Records: records})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}
	return payload, nil
}

func letterFilename(requestID string) string {
	return "letter_" + sanitizeFilename(requestID) + ".pdf"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

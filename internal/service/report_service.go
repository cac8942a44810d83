package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/export"
	"github.com/noah-isme/registrar-api/pkg/storage"
)

const reportDateLayout = "2006-01-02"

type reportStore interface {
	Report(ctx context.Context, filter models.ReportFilter) ([]models.DocumentRequest, error)
}

type scopeResolver interface {
	ScopeFor(ctx context.Context, actor *models.JWTClaims) (models.DepartmentScope, error)
}

// ReportService builds scoped date-range reports and renders them as CSV or
// PDF downloads behind signed tokens.
type ReportService struct {
	repo   reportStore
	scopes scopeResolver
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	files  *storage.LocalStorage
	signer *storage.SignedURLSigner
	audit  auditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs the service.
func NewReportService(
	repo reportStore,
	scopes scopeResolver,
	files *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	audit auditLogger,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:   repo,
		scopes: scopes,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		files:  files,
		signer: signer,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// resolveFilter validates the query window and intersects the requested
// department with the actor's visibility. The To date is inclusive; the
// stored filter carries the exclusive upper bound.
func (s *ReportService) resolveFilter(ctx context.Context, query dto.ReportQuery, actor *models.JWTClaims) (models.ReportFilter, error) {
	from, err := time.Parse(reportDateLayout, query.FromDate)
	if err != nil {
		return models.ReportFilter{}, appErrors.Clone(appErrors.ErrInvalidRange, "fromDate must be formatted YYYY-MM-DD")
	}
	to, err := time.Parse(reportDateLayout, query.ToDate)
	if err != nil {
		return models.ReportFilter{}, appErrors.Clone(appErrors.ErrInvalidRange, "toDate must be formatted YYYY-MM-DD")
	}
	if to.Before(from) {
		return models.ReportFilter{}, appErrors.Clone(appErrors.ErrInvalidRange, "toDate must not precede fromDate")
	}

	scope, err := s.scopes.ScopeFor(ctx, actor)
	if err != nil {
		return models.ReportFilter{}, err
	}

	filter := models.ReportFilter{
		From: from,
		To:   to.AddDate(0, 0, 1),
	}
	switch {
	case query.DepartmentID != nil:
		if !scope.Contains(*query.DepartmentID) {
			return models.ReportFilter{}, appErrors.Clone(appErrors.ErrForbidden, "department outside your visibility")
		}
		filter.DepartmentIDs = []string{*query.DepartmentID}
	case scope.All:
		filter.DepartmentIDs = nil
	default:
		// A non-nil empty set matches nothing; staff with no memberships see
		// an empty report, never everything.
		filter.DepartmentIDs = scope.IDs
	}
	return filter, nil
}

// Query returns the raw request rows for the window and scope.
func (s *ReportService) Query(ctx context.Context, query dto.ReportQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error) {
	filter, err := s.resolveFilter(ctx, query, actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Report(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to run report query")
	}
	return rows, nil
}

// Export renders the report in the requested format, stores the file, and
// returns a signed download token.
func (s *ReportService) Export(ctx context.Context, query dto.ReportQuery, actor *models.JWTClaims) (*dto.ReportExportResponse, error) {
	rows, err := s.Query(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	dataset := buildReportDataset(rows)
	generatedAt := s.now()
	filename := fmt.Sprintf("requests-%s-to-%s-%d.%s", query.FromDate, query.ToDate, generatedAt.Unix(), query.Format)

	var rendered []byte
	switch query.Format {
	case "csv":
		rendered, err = s.csv.Render(dataset)
	case "pdf":
		title := fmt.Sprintf("Document Requests %s to %s", query.FromDate, query.ToDate)
		rendered, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	relPath, err := s.files.Save(filename, rendered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report file")
	}
	token, expiresAt, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	if s.audit != nil {
		var userID *string
		if actor != nil {
			userID = &actor.UserID
		}
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:   userID,
			Action:   models.AuditActionReportExport,
			Resource: "report",
		}); err != nil {
			s.logger.Warn("audit log write failed", zap.Error(err))
		}
	}

	return &dto.ReportExportResponse{
		Token:     token,
		Filename:  filename,
		Format:    query.Format,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		RowCount:  len(rows),
	}, nil
}

// OpenDownload validates the signed token and returns a handle on the stored
// report file.
func (s *ReportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file no longer exists")
	}
	return file, relPath, nil
}

func buildReportDataset(rows []models.DocumentRequest) export.Dataset {
	headers := []string{"Request No", "Reference", "Requester Type", "Status", "Pickup Status", "Total Amount", "Created At"}
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		pickup := ""
		if row.PickupStatus != "" {
			pickup = string(row.PickupStatus)
		}
		data = append(data, map[string]string{
			"Request No":     row.RequestNo,
			"Reference":      row.ReferenceNumber,
			"Requester Type": string(row.RequesterType),
			"Status":         string(row.Status),
			"Pickup Status":  pickup,
			"Total Amount":   row.TotalAmount.String(),
			"Created At":     row.CreatedAt.Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: data}
}

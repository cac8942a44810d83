package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/response"
)

type reportService interface {
	Query(ctx context.Context, query dto.ReportQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error)
	Export(ctx context.Context, query dto.ReportQuery, actor *models.JWTClaims) (*dto.ReportExportResponse, error)
	OpenDownload(token string) (*os.File, string, error)
}

// ReportHandler exposes the date-ranged, department-scoped report endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func bindReportQuery(c *gin.Context) dto.ReportQuery {
	query := dto.ReportQuery{
		FromDate: strings.TrimSpace(c.Query("from_date")),
		ToDate:   strings.TrimSpace(c.Query("to_date")),
		Format:   strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))),
	}
	if raw := strings.TrimSpace(c.Query("department_id")); raw != "" {
		query.DepartmentID = &raw
	}
	return query
}

// Query godoc
// @Summary Query requests within a date range
// @Tags Reports
// @Produce json
// @Param from_date query string true "Start date (YYYY-MM-DD)"
// @Param to_date query string true "End date (YYYY-MM-DD), inclusive"
// @Param department_id query string false "Narrow to one department"
// @Success 200 {object} response.Envelope
// @Router /reports/requests [get]
func (h *ReportHandler) Query(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.service.Query(c.Request.Context(), bindReportQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export a report as CSV or PDF
// @Tags Reports
// @Produce json
// @Param from_date query string true "Start date (YYYY-MM-DD)"
// @Param to_date query string true "End date (YYYY-MM-DD), inclusive"
// @Param department_id query string false "Narrow to one department"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/requests/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Export(c.Request.Context(), bindReportQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered report using a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, name, err := h.service.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "application/octet-stream"
	switch filepath.Ext(name) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(name)+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-api/internal/middleware"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/response"
)

type catalogService interface {
	ListDocumentTypes(ctx context.Context) ([]models.DocumentType, bool, error)
	ListPurposes(ctx context.Context) ([]models.RequestPurpose, bool, error)
	ListPurposesForDocumentType(ctx context.Context, documentTypeID string) ([]models.RequestPurpose, error)
	SetDocumentTypeActive(ctx context.Context, id string, active bool, actor *models.JWTClaims) error
}

// CatalogHandler serves the public catalog and its admin mutations.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListDocumentTypes godoc
// @Summary List offered document types
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/document-types [get]
func (h *CatalogHandler) ListDocumentTypes(c *gin.Context) {
	types, cacheHit, err := h.service.ListDocumentTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, types, nil, middleware.ExtractMeta(c))
}

// ListPurposes godoc
// @Summary List active request purposes
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/purposes [get]
func (h *CatalogHandler) ListPurposes(c *gin.Context) {
	purposes, cacheHit, err := h.service.ListPurposes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, purposes, nil, middleware.ExtractMeta(c))
}

// ListPurposesForDocumentType godoc
// @Summary List purposes applicable to one document type
// @Tags Catalog
// @Produce json
// @Param id path string true "Document type ID"
// @Success 200 {object} response.Envelope
// @Router /catalog/document-types/{id}/purposes [get]
func (h *CatalogHandler) ListPurposesForDocumentType(c *gin.Context) {
	purposes, err := h.service.ListPurposesForDocumentType(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purposes, nil)
}

type setActivePayload struct {
	Active *bool `json:"active" binding:"required"`
}

// SetDocumentTypeActive godoc
// @Summary Retire or restore a document type
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Document type ID"
// @Param payload body setActivePayload true "Active flag"
// @Success 204
// @Router /catalog/document-types/{id}/active [patch]
func (h *CatalogHandler) SetDocumentTypeActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload setActivePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active flag is required"))
		return
	}
	if err := h.service.SetDocumentTypeActive(c.Request.Context(), c.Param("id"), *payload.Active, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

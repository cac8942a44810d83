package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, payload dto.CreateRequestPayload) (*models.DocumentRequest, error)
	Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.DocumentRequest, error)
	List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.DocumentRequest, *models.Pagination, error)
	Transition(ctx context.Context, requestID string, payload dto.TransitionPayload, actor *models.JWTClaims) (*models.DocumentRequest, error)
	Reschedule(ctx context.Context, requestID string, payload dto.ReschedulePayload, actor *models.JWTClaims) (*models.DocumentRequest, error)
	History(ctx context.Context, requestID string, actor *models.JWTClaims) ([]models.RequestTracking, error)
	TrackByReference(ctx context.Context, referenceNumber string) (*dto.TrackingView, error)
	UpdateAdminNotes(ctx context.Context, requestID string, payload dto.AdminNotesPayload, actor *models.JWTClaims) error
}

// RequestHandler exposes the document request lifecycle endpoints.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Submit a new document request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get a document request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List document requests
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param requester_type query string false "STUDENT or ALUMNI"
// @Param search query string false "Match against request or reference number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.RequestFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("requester_type"); raw != "" {
		filter.RequesterType = models.RequesterType(strings.ToUpper(raw))
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			filter.Status = append(filter.Status, models.RequestStatus(part))
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	requests, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Transition godoc
// @Summary Move a request to a new status
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.TransitionPayload true "Target status"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/transition [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.TransitionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	payload.TargetStatus = models.RequestStatus(strings.ToUpper(string(payload.TargetStatus)))
	request, err := h.service.Transition(c.Request.Context(), c.Param("id"), payload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reschedule godoc
// @Summary Reschedule the pickup date
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReschedulePayload true "New pickup date"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reschedule [post]
func (h *RequestHandler) Reschedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.ReschedulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reschedule payload"))
		return
	}
	request, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), payload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// History godoc
// @Summary Get the full tracking history of a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/history [get]
func (h *RequestHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.service.History(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// UpdateNotes godoc
// @Summary Update staff notes on a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AdminNotesPayload true "Notes"
// @Success 204
// @Router /requests/{id}/notes [put]
func (h *RequestHandler) UpdateNotes(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.AdminNotesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid notes payload"))
		return
	}
	if err := h.service.UpdateAdminNotes(c.Request.Context(), c.Param("id"), payload, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Track godoc
// @Summary Public status lookup by reference number
// @Tags Tracking
// @Produce json
// @Param reference path string true "Reference number"
// @Success 200 {object} response.Envelope
// @Router /track/{reference} [get]
func (h *RequestHandler) Track(c *gin.Context) {
	reference := strings.ToUpper(strings.TrimSpace(c.Param("reference")))
	if reference == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reference number is required"))
		return
	}
	view, err := h.service.TrackByReference(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/response"
)

type departmentService interface {
	List(ctx context.Context) ([]models.Department, error)
	Memberships(ctx context.Context, userID string) ([]string, error)
	Assign(ctx context.Context, userID, departmentID string) error
	Remove(ctx context.Context, userID, departmentID string) error
}

// DepartmentHandler manages departments and staff visibility assignments.
type DepartmentHandler struct {
	service departmentService
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(service departmentService) *DepartmentHandler {
	return &DepartmentHandler{service: service}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	departments, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Memberships godoc
// @Summary List a user's department memberships
// @Tags Departments
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/departments [get]
func (h *DepartmentHandler) Memberships(c *gin.Context) {
	ids, err := h.service.Memberships(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

type membershipPayload struct {
	DepartmentID string `json:"department_id" binding:"required"`
}

// Assign godoc
// @Summary Grant a user visibility over a department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body membershipPayload true "Department"
// @Success 204
// @Router /users/{id}/departments [post]
func (h *DepartmentHandler) Assign(c *gin.Context) {
	var payload membershipPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department_id is required"))
		return
	}
	if err := h.service.Assign(c.Request.Context(), c.Param("id"), payload.DepartmentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Revoke a user's visibility over a department
// @Tags Departments
// @Produce json
// @Param id path string true "User ID"
// @Param departmentId path string true "Department ID"
// @Success 204
// @Router /users/{id}/departments/{departmentId} [delete]
func (h *DepartmentHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), c.Param("departmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academix-api/internal/service"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
	"github.com/noah-isme/academix-api/pkg/response"
)

// MarkHandler exposes mark ledger endpoints.
type MarkHandler struct {
	marks *service.MarkService
}

// NewMarkHandler constructs handler.
func NewMarkHandler(marks *service.MarkService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Add godoc
// @Summary Record a mark for a student
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AddMarkRequest true "Mark payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/marks [post]
func (h *MarkHandler) Add(c *gin.Context) {
	var req service.AddMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, warning, err := h.marks.Add(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CreatedWithWarning(c, mark, warning)
}

// Update godoc
// @Summary Correct an existing mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Mark ID"
// @Param payload body service.UpdateMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Router /marks/{id} [put]
func (h *MarkHandler) Update(c *gin.Context) {
	var req service.UpdateMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, warning, err := h.marks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if warning != nil {
		response.JSON(c, http.StatusOK, mark, nil, map[string]interface{}{"warning": warning})
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// ListByStudent godoc
// @Summary List a student's marks
// @Tags Marks
// @Produce json
// @Param id path string true "Student ID"
// @Param semester query string false "Filter by semester"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/marks [get]
func (h *MarkHandler) ListByStudent(c *gin.Context) {
	marks, err := h.marks.ListByStudent(c.Request.Context(), c.Param("id"), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academix-api/internal/service"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
	"github.com/noah-isme/academix-api/pkg/response"
)

// ResultHandler exposes result computation and approval endpoints.
type ResultHandler struct {
	results *service.ResultService
	exports *service.ExportService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService, exports *service.ExportService) *ResultHandler {
	return &ResultHandler{results: results, exports: exports}
}

// Calculate godoc
// @Summary Compute a student's semester result
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Param semester path string true "Semester"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/results/{semester}/calculate [post]
func (h *ResultHandler) Calculate(c *gin.Context) {
	result, err := h.results.Compute(c.Request.Context(), c.Param("id"), c.Param("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a student's semester result
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Param semester path string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/results/{semester} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"), c.Param("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListByStudent godoc
// @Summary List all results for a student
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/results [get]
func (h *ResultHandler) ListByStudent(c *gin.Context) {
	results, err := h.results.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// SetStatus godoc
// @Summary Change a result's approval status
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.UpdateResultStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/status [patch]
func (h *ResultHandler) SetStatus(c *gin.Context) {
	var req service.UpdateResultStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.SetStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a student's result sheet
// @Tags Results
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param semester path string true "Semester"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /students/{id}/results/{semester}/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.ResultSheet(c.Request.Context(), c.Param("id"), c.Param("semester"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Summary godoc
// @Summary Semester-level pass/fail analytics
// @Tags Results
// @Produce json
// @Param semester path string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /results/summary/{semester} [get]
func (h *ResultHandler) Summary(c *gin.Context) {
	summary, err := h.results.Summary(c.Request.Context(), c.Param("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

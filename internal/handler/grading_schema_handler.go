package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academix-api/internal/service"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
	"github.com/noah-isme/academix-api/pkg/response"
)

// GradingSchemaHandler exposes grading schema endpoints.
type GradingSchemaHandler struct {
	schemas *service.GradingSchemaService
}

// NewGradingSchemaHandler constructs handler.
func NewGradingSchemaHandler(schemas *service.GradingSchemaService) *GradingSchemaHandler {
	return &GradingSchemaHandler{schemas: schemas}
}

// List godoc
// @Summary List grading schemas
// @Tags GradingSchemas
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading-schemas [get]
func (h *GradingSchemaHandler) List(c *gin.Context) {
	schemas, err := h.schemas.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schemas, nil)
}

// Get godoc
// @Summary Get grading schema by id
// @Tags GradingSchemas
// @Produce json
// @Param id path string true "Schema ID"
// @Success 200 {object} response.Envelope
// @Router /grading-schemas/{id} [get]
func (h *GradingSchemaHandler) Get(c *gin.Context) {
	schema, err := h.schemas.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Active godoc
// @Summary Get the active grading schema
// @Tags GradingSchemas
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading-schemas/active [get]
func (h *GradingSchemaHandler) Active(c *gin.Context) {
	schema, err := h.schemas.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Create godoc
// @Summary Create grading schema
// @Tags GradingSchemas
// @Accept json
// @Produce json
// @Param payload body service.CreateGradingSchemaRequest true "Schema payload"
// @Success 201 {object} response.Envelope
// @Router /grading-schemas [post]
func (h *GradingSchemaHandler) Create(c *gin.Context) {
	var req service.CreateGradingSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schema, err := h.schemas.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schema)
}

// Update godoc
// @Summary Update grading schema
// @Tags GradingSchemas
// @Accept json
// @Produce json
// @Param id path string true "Schema ID"
// @Param payload body service.UpdateGradingSchemaRequest true "Schema payload"
// @Success 200 {object} response.Envelope
// @Router /grading-schemas/{id} [put]
func (h *GradingSchemaHandler) Update(c *gin.Context) {
	var req service.UpdateGradingSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schema, err := h.schemas.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Activate godoc
// @Summary Activate grading schema
// @Tags GradingSchemas
// @Produce json
// @Param id path string true "Schema ID"
// @Success 200 {object} response.Envelope
// @Router /grading-schemas/{id}/activate [post]
func (h *GradingSchemaHandler) Activate(c *gin.Context) {
	schema, err := h.schemas.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Delete godoc
// @Summary Delete grading schema
// @Tags GradingSchemas
// @Param id path string true "Schema ID"
// @Success 204 "No Content"
// @Router /grading-schemas/{id} [delete]
func (h *GradingSchemaHandler) Delete(c *gin.Context) {
	if err := h.schemas.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

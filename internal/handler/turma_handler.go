package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/service"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/response"
)

// TurmaHandler exposes class template endpoints.
type TurmaHandler struct {
	turmas *service.TurmaService
}

// NewTurmaHandler constructs TurmaHandler.
func NewTurmaHandler(turmas *service.TurmaService) *TurmaHandler {
	return &TurmaHandler{turmas: turmas}
}

// List godoc
// @Summary List turmas
// @Tags Turmas
// @Produce json
// @Param includeDeleted query bool false "Include soft-deleted templates (staff)"
// @Param onlyDeleted query bool false "Only soft-deleted templates (staff)"
// @Success 200 {object} response.Envelope
// @Router /turmas [get]
func (h *TurmaHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.TurmaFilter{
		IncludeDeleted: c.Query("includeDeleted") == "true",
		OnlyDeleted:    c.Query("onlyDeleted") == "true",
	}
	turmas, err := h.turmas.List(c.Request.Context(), claims.AcademiaID, filter, claims.IsStaff())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turmas, nil)
}

// Get godoc
// @Summary Get turma by id
// @Tags Turmas
// @Produce json
// @Param id path string true "Turma ID"
// @Success 200 {object} response.Envelope
// @Router /turmas/{id} [get]
func (h *TurmaHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	turma, err := h.turmas.Get(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turma, nil)
}

// Create godoc
// @Summary Create turma
// @Tags Turmas
// @Accept json
// @Produce json
// @Param payload body service.CreateTurmaRequest true "Turma payload"
// @Success 201 {object} response.Envelope
// @Router /turmas [post]
func (h *TurmaHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateTurmaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	turma, err := h.turmas.Create(c.Request.Context(), claims.AcademiaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, turma)
}

// Update godoc
// @Summary Update turma
// @Tags Turmas
// @Accept json
// @Produce json
// @Param id path string true "Turma ID"
// @Param payload body service.UpdateTurmaRequest true "Partial turma payload"
// @Success 200 {object} response.Envelope
// @Router /turmas/{id} [patch]
func (h *TurmaHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateTurmaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	turma, err := h.turmas.Update(c.Request.Context(), c.Param("id"), claims.AcademiaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turma, nil)
}

// Delete godoc
// @Summary Soft-delete turma
// @Tags Turmas
// @Param id path string true "Turma ID"
// @Success 204
// @Router /turmas/{id} [delete]
func (h *TurmaHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.turmas.SoftDelete(c.Request.Context(), c.Param("id"), claims.AcademiaID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore soft-deleted turma
// @Tags Turmas
// @Produce json
// @Param id path string true "Turma ID"
// @Success 200 {object} response.Envelope
// @Router /turmas/{id}/restore [post]
func (h *TurmaHandler) Restore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	turma, err := h.turmas.Restore(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turma, nil)
}

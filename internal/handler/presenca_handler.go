package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/service"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/response"
)

// PresencaHandler exposes attendance decision endpoints.
type PresencaHandler struct {
	presencas *service.PresencaService
	metrics   *service.MetricsService
}

// NewPresencaHandler constructs PresencaHandler.
func NewPresencaHandler(presencas *service.PresencaService, metrics *service.MetricsService) *PresencaHandler {
	return &PresencaHandler{presencas: presencas, metrics: metrics}
}

// ListPendentes godoc
// @Summary List pending attendance records
// @Tags Presencas
// @Produce json
// @Param turmaId query string false "Filter by turma"
// @Param from query string false "Local date YYYY-MM-DD"
// @Param to query string false "Local date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /presencas/pendentes [get]
func (h *PresencaHandler) ListPendentes(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := service.PendenteQuery{
		TurmaID: c.Query("turmaId"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
	pendentes, err := h.presencas.ListPendentes(c.Request.Context(), claims.AcademiaID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pendentes, nil)
}

// Decide godoc
// @Summary Decide one pending attendance record
// @Tags Presencas
// @Accept json
// @Produce json
// @Param id path string true "Presenca ID"
// @Param payload body service.DecidePresencaRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /presencas/{id}/decidir [post]
func (h *PresencaHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.DecidePresencaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	presenca, err := h.presencas.Decide(c.Request.Context(), c.Param("id"), claims.AcademiaID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordDecisao(string(presenca.Status))
	}
	response.JSON(c, http.StatusOK, presenca, nil)
}

// DecideBatch godoc
// @Summary Decide several pending attendance records
// @Tags Presencas
// @Accept json
// @Produce json
// @Param payload body service.DecideLoteRequest true "Batch decision payload"
// @Success 200 {object} response.Envelope
// @Router /presencas/decidir-lote [post]
func (h *PresencaHandler) DecideBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.DecideLoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.presencas.DecideBatch(c.Request.Context(), claims.AcademiaID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateStatus godoc
// @Summary Override attendance status
// @Tags Presencas
// @Accept json
// @Produce json
// @Param id path string true "Presenca ID"
// @Param payload body handler.UpdatePresencaStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /presencas/{id}/status [patch]
func (h *PresencaHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req UpdatePresencaStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	presenca, err := h.presencas.UpdateStatus(c.Request.Context(), c.Param("id"), claims.AcademiaID, claims.UserID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presenca, nil)
}

// UpdatePresencaStatusRequest carries a direct status override.
type UpdatePresencaStatusRequest struct {
	Status models.PresencaStatus `json:"status" binding:"required"`
}

// Historico godoc
// @Summary List a student's attendance history
// @Tags Presencas
// @Produce json
// @Param alunoId path string true "Aluno ID"
// @Param from query string false "Local date YYYY-MM-DD"
// @Param to query string false "Local date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /presencas/alunos/{alunoId}/historico [get]
func (h *PresencaHandler) Historico(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alunoID := c.Param("alunoId")
	if alunoID != claims.UserID && !claims.IsStaff() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "historico de outro aluno e restrito a equipe"))
		return
	}
	query := service.HistoricoQuery{From: c.Query("from"), To: c.Query("to")}
	rows, err := h.presencas.Historico(c.Request.Context(), claims.AcademiaID, alunoID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ListByAula godoc
// @Summary List attendance records of one aula
// @Tags Presencas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id}/presencas [get]
func (h *PresencaHandler) ListByAula(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.presencas.ListByAula(c.Request.Context(), claims.AcademiaID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportAula godoc
// @Summary Export the attendance sheet of one aula
// @Tags Presencas
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Aula ID"
// @Param formato query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /aulas/{id}/presencas/export [get]
func (h *PresencaHandler) ExportAula(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, contentType, err := h.presencas.ExportAula(c.Request.Context(), claims.AcademiaID, c.Param("id"), c.Query("formato"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	response.Download(c, fmt.Sprintf("presencas-%s.%s", c.Param("id"), ext), contentType, payload)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitsync/academia-api/internal/service"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/response"
)

// AulaHandler exposes class instance endpoints.
type AulaHandler struct {
	aulas   *service.AulaService
	metrics *service.MetricsService
}

// NewAulaHandler constructs AulaHandler.
func NewAulaHandler(aulas *service.AulaService, metrics *service.MetricsService) *AulaHandler {
	return &AulaHandler{aulas: aulas, metrics: metrics}
}

// List godoc
// @Summary List aulas
// @Tags Aulas
// @Produce json
// @Param turmaId query string false "Filter by turma"
// @Param status query string false "Filter by status"
// @Param from query string false "Local date YYYY-MM-DD"
// @Param to query string false "Local date YYYY-MM-DD"
// @Param includeDeleted query bool false "Include soft-deleted instances (staff)"
// @Param onlyDeleted query bool false "Only soft-deleted instances (staff)"
// @Success 200 {object} response.Envelope
// @Router /aulas [get]
func (h *AulaHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := service.AulaListQuery{
		TurmaID:        c.Query("turmaId"),
		Status:         c.Query("status"),
		From:           c.Query("from"),
		To:             c.Query("to"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		OnlyDeleted:    c.Query("onlyDeleted") == "true",
	}
	aulas, err := h.aulas.List(c.Request.Context(), claims.AcademiaID, query, claims.IsStaff())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aulas, nil)
}

// ListToday godoc
// @Summary List today's aulas
// @Tags Aulas
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /aulas/hoje [get]
func (h *AulaHandler) ListToday(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	aulas, err := h.aulas.ListToday(c.Request.Context(), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aulas, nil)
}

// Get godoc
// @Summary Get aula by id
// @Tags Aulas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id} [get]
func (h *AulaHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	aula, err := h.aulas.Get(c.Request.Context(), c.Param("id"), claims.AcademiaID, claims.IsStaff())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aula, nil)
}

// Create godoc
// @Summary Create aula
// @Tags Aulas
// @Accept json
// @Produce json
// @Param payload body service.CreateAulaRequest true "Aula payload"
// @Success 201 {object} response.Envelope
// @Router /aulas [post]
func (h *AulaHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateAulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	aula, err := h.aulas.Create(c.Request.Context(), claims.AcademiaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordAulasCriadas("single", 1)
	}
	response.Created(c, aula)
}

// CreateBatch godoc
// @Summary Create aulas over a date range
// @Tags Aulas
// @Accept json
// @Produce json
// @Param payload body service.CreateAulasLoteRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /aulas/lote [post]
func (h *AulaHandler) CreateBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateAulasLoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.aulas.CreateBatch(c.Request.Context(), claims.AcademiaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordAulasCriadas("lote", result.Criadas)
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Update godoc
// @Summary Update aula
// @Tags Aulas
// @Accept json
// @Produce json
// @Param id path string true "Aula ID"
// @Param payload body service.UpdateAulaRequest true "Partial aula payload"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id} [patch]
func (h *AulaHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateAulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	aula, err := h.aulas.Update(c.Request.Context(), c.Param("id"), claims.AcademiaID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aula, nil)
}

// IssueQRCode godoc
// @Summary Issue QR token for an aula
// @Tags Aulas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id}/qrcode [post]
func (h *AulaHandler) IssueQRCode(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	qr, err := h.aulas.IssueQRCode(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordQRIssued()
	}
	response.JSON(c, http.StatusOK, qr, nil)
}

// Cancel godoc
// @Summary Cancel aula
// @Tags Aulas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id}/cancelar [post]
func (h *AulaHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	aula, err := h.aulas.Cancel(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aula, nil)
}

// End godoc
// @Summary End aula
// @Tags Aulas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id}/encerrar [post]
func (h *AulaHandler) End(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	aula, err := h.aulas.End(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aula, nil)
}

// Delete godoc
// @Summary Soft-delete aula
// @Tags Aulas
// @Param id path string true "Aula ID"
// @Success 204
// @Router /aulas/{id} [delete]
func (h *AulaHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.aulas.SoftDelete(c.Request.Context(), c.Param("id"), claims.AcademiaID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore soft-deleted aula
// @Tags Aulas
// @Produce json
// @Param id path string true "Aula ID"
// @Success 200 {object} response.Envelope
// @Router /aulas/{id}/restore [post]
func (h *AulaHandler) Restore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	aula, err := h.aulas.Restore(c.Request.Context(), c.Param("id"), claims.AcademiaID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aula, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitsync/academia-api/internal/service"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/response"
)

// CheckinHandler exposes student-facing check-in endpoints.
type CheckinHandler struct {
	checkins *service.CheckinService
	metrics  *service.MetricsService
}

// NewCheckinHandler constructs CheckinHandler.
func NewCheckinHandler(checkins *service.CheckinService, metrics *service.MetricsService) *CheckinHandler {
	return &CheckinHandler{checkins: checkins, metrics: metrics}
}

// ListDisponiveis godoc
// @Summary List today's classes available for check-in
// @Tags Checkin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /checkin/disponiveis [get]
func (h *CheckinHandler) ListDisponiveis(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	disponiveis, err := h.checkins.ListDisponiveis(c.Request.Context(), claims.AcademiaID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, disponiveis, nil)
}

// Create godoc
// @Summary Register a check-in
// @Tags Checkin
// @Accept json
// @Produce json
// @Param payload body service.CreateCheckinRequest true "Checkin payload"
// @Success 201 {object} response.Envelope
// @Router /checkin [post]
func (h *CheckinHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	presenca, err := h.checkins.Create(c.Request.Context(), claims.AcademiaID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCheckin(string(presenca.Origem))
	}
	response.Created(c, presenca)
}

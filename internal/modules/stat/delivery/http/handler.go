package http

import (
	"net/http"
	"strconv"

	statService "anoa.com/campuscomplaint/internal/modules/stat/service"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{statService: statService}
}

func (h *StatHandler) GetStatusCounts(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	counts, err := h.statService.StatusCounts(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, counts, "Status counts retrieved")
}

func (h *StatHandler) GetFacultyCounts(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	counts, err := h.statService.FacultyCounts(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, counts, "Faculty counts retrieved")
}

func (h *StatHandler) GetDateSeries(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	days, err := intQuery(c, "days")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	series, err := h.statService.DateSeries(c.Request.Context(), actor, days)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, series, "Daily series retrieved")
}

func (h *StatHandler) GetMonthlySeries(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	months, err := intQuery(c, "months")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	series, err := h.statService.MonthlySeries(c.Request.Context(), actor, months)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, series, "Monthly series retrieved")
}

// intQuery returns 0 when the parameter is absent so the service applies its default.
func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.InvalidInput(key + " must be a number")
	}
	return v, nil
}

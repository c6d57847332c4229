package http

import (
	"net/http"
	"strconv"

	"anoa.com/campuscomplaint/internal/entity"
	feedbackDto "anoa.com/campuscomplaint/internal/modules/feedback/dto"
	"anoa.com/campuscomplaint/internal/modules/feedback/service"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FeedbackHandler struct {
	service service.FeedbackService
}

func NewFeedbackHandler(service service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	complaintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.InvalidInput("invalid complaint id"))
		return
	}

	var req feedbackDto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	feedback, err := h.service.Submit(c.Request.Context(), actor, complaintID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, feedback, "Thank you for your feedback")
}

func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	complaintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.InvalidInput("invalid complaint id"))
		return
	}

	feedback, err := h.service.Get(c.Request.Context(), actor, complaintID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, feedback, "Feedback retrieved")
}

func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit := 0
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	feedback, err := h.service.List(c.Request.Context(), actor, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if feedback == nil {
		feedback = []entity.Feedback{}
	}

	response.Success(c, http.StatusOK, feedback, "Feedback retrieved")
}

func (h *FeedbackHandler) GetStats(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats, "Feedback statistics retrieved")
}

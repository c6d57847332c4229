package http

import (
	"errors"
	"fmt"
	"net/http"

	"anoa.com/campuscomplaint/internal/entity"
	complaintDto "anoa.com/campuscomplaint/internal/modules/complaint/dto"
	complaint "anoa.com/campuscomplaint/internal/modules/complaint/service"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/ratelimiter"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ComplaintHandler struct {
	service complaint.Service
}

func NewComplaintHandler(service complaint.Service) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

func (h *ComplaintHandler) SubmitComplaint(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req complaintDto.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	created, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		var limited *ratelimiter.RateLimitError
		if errors.As(err, &limited) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", limited.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created, "Complaint submitted successfully")
}

func (h *ComplaintHandler) ListComplaints(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query complaintDto.ListComplaintsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	complaints, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if complaints == nil {
		complaints = []entity.Complaint{}
	}

	response.Success(c, http.StatusOK, complaints, "Complaints retrieved")
}

func (h *ComplaintHandler) SearchComplaints(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query complaintDto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	complaints, err := h.service.Search(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, complaints, "Search completed")
}

func (h *ComplaintHandler) GetComplaint(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail, "Complaint retrieved")
}

func (h *ComplaintHandler) GetHistory(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	history, err := h.service.History(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if history == nil {
		history = []entity.AuditEntry{}
	}

	response.Success(c, http.StatusOK, history, "History retrieved")
}

func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req complaintDto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	updated, err := h.service.SetStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated, "Complaint status updated successfully")
}

func (h *ComplaintHandler) UpdatePriority(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req complaintDto.UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	updated, err := h.service.SetPriority(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated, "Complaint priority updated successfully")
}

func (h *ComplaintHandler) UpdateSensitive(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req complaintDto.UpdateSensitiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	updated, err := h.service.SetSensitive(c.Request.Context(), actor, id, *req.Sensitive)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated, "Complaint visibility updated")
}

func (h *ComplaintHandler) WithdrawComplaint(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.service.Withdraw(c.Request.Context(), actor, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success[any](c, http.StatusOK, nil, "Complaint withdrawn successfully")
}

// actorAndID writes the error response itself when it returns false.
func actorAndID(c *gin.Context) (entity.Actor, uuid.UUID, bool) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return entity.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.InvalidInput("invalid complaint id"))
		return entity.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}

package http

import (
	"net/http"

	"anoa.com/campuscomplaint/internal/modules/attachment/service"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	service service.AttachmentService
}

func NewAttachmentHandler(service service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, apperror.InvalidInput("file is required"))
		return
	}

	resp, err := h.service.UploadAttachment(c.Request.Context(), userID, file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, "File uploaded")
}

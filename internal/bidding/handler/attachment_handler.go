package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// AttachmentHandler 投标附件处理器
type AttachmentHandler struct {
	svc *service.AttachmentService
}

func NewAttachmentHandler(svc *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload 上传附件
// POST /bidding/rfps/:id/bids/:bidId/attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "打开上传文件失败: "+err.Error())
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.svc.Upload(c.Request.Context(), c.Param("id"), c.Param("bidId"),
		fileHeader.Filename, contentType, file, fileHeader.Size, GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, attachment)
}

// List 附件列表
// GET /bidding/rfps/:id/bids/:bidId/attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	attachments, err := h.svc.List(c.Request.Context(), c.Param("id"), c.Param("bidId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": attachments})
}

// Download 下载附件
// GET /bidding/attachments/:attachmentId/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	reader, attachment, err := h.svc.Download(c.Request.Context(), c.Param("attachmentId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.Header("Content-Type", attachment.MimeType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, reader)
}

// Delete 删除附件
// DELETE /bidding/attachments/:attachmentId
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("attachmentId")); err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, nil)
}

package handler

import (
	"github.com/bitfantasy/sitepm/internal/pm/service"
	"github.com/gin-gonic/gin"
)

// CommitmentHandler 合同承诺处理器
type CommitmentHandler struct {
	svc *service.CommitmentService
}

func NewCommitmentHandler(svc *service.CommitmentService) *CommitmentHandler {
	return &CommitmentHandler{svc: svc}
}

// List 承诺列表
// GET /pm/commitments
func (h *CommitmentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"project_id": c.Query("project_id"),
		"vendor_id":  c.Query("vendor_id"),
		"status":     c.Query("status"),
	}
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResult(c, items, total, page, pageSize)
}

// Get 承诺详情（含分摊）
// GET /pm/commitments/:id
func (h *CommitmentHandler) Get(c *gin.Context) {
	commitment, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, commitment)
}

// Activate 激活承诺
// POST /pm/commitments/:id/activate
func (h *CommitmentHandler) Activate(c *gin.Context) {
	commitment, err := h.svc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, commitment)
}

// Close 关闭承诺
// POST /pm/commitments/:id/close
func (h *CommitmentHandler) Close(c *gin.Context) {
	commitment, err := h.svc.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, commitment)
}

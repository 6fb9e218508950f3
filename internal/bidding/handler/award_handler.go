package handler

import (
	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// AwardHandler 定标处理器
type AwardHandler struct {
	svc *service.AwardService
}

func NewAwardHandler(svc *service.AwardService) *AwardHandler {
	return &AwardHandler{svc: svc}
}

// Award 定标
// POST /bidding/rfps/:id/award
func (h *AwardHandler) Award(c *gin.Context) {
	var req service.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.svc.AwardBid(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, result)
}

// Get 查询定标记录
// GET /bidding/rfps/:id/award
func (h *AwardHandler) Get(c *gin.Context) {
	award, err := h.svc.GetAward(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, award)
}

// Rescind 撤销定标
// POST /bidding/rfps/:id/award/rescind
func (h *AwardHandler) Rescind(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.svc.RescindAward(c.Request.Context(), c.Param("id"), GetUserID(c), req.Reason); err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, nil)
}

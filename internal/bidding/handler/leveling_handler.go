package handler

import (
	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// LevelingHandler 清标处理器
type LevelingHandler struct {
	svc *service.LevelingService
}

func NewLevelingHandler(svc *service.LevelingService) *LevelingHandler {
	return &LevelingHandler{svc: svc}
}

// Apply 应用清标调整（整体替换plug/normalization批次）
// PUT /bidding/rfps/:id/bids/:bidId/leveling
func (h *LevelingHandler) Apply(c *gin.Context) {
	var req struct {
		Adjustments []service.LevelingAdjustmentInput `json:"adjustments" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.svc.ApplyLeveling(c.Request.Context(), c.Param("id"), c.Param("bidId"), GetUserID(c), req.Adjustments)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, result)
}

package handler

import (
	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// BidHandler 投标处理器
type BidHandler struct {
	svc *service.BidService
}

func NewBidHandler(svc *service.BidService) *BidHandler {
	return &BidHandler{svc: svc}
}

// List 某招标单下的投标列表（开标前非管理员看脱敏版本）
// GET /bidding/rfps/:id/bids
func (h *BidHandler) List(c *gin.Context) {
	bids, err := h.svc.ListBids(c.Request.Context(), c.Param("id"), IsAdmin(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": bids})
}

// Get 投标详情
// GET /bidding/rfps/:id/bids/:bidId
func (h *BidHandler) Get(c *gin.Context) {
	bid, err := h.svc.GetBid(c.Request.Context(), c.Param("id"), c.Param("bidId"), IsAdmin(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, bid)
}

// Create 创建投标草稿
// POST /bidding/rfps/:id/bids
func (h *BidHandler) Create(c *gin.Context) {
	var req service.CreateBidInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	bid, err := h.svc.CreateBid(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, bid)
}

// UpsertItem 录入/更新投标行项
// PUT /bidding/rfps/:id/bids/:bidId/items
func (h *BidHandler) UpsertItem(c *gin.Context) {
	var req service.BidItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpsertItem(c.Request.Context(), c.Param("id"), c.Param("bidId"), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, item)
}

// DeleteItem 删除投标行项
// DELETE /bidding/rfps/:id/bids/:bidId/items/:itemId
func (h *BidHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("bidId"), c.Param("itemId")); err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, nil)
}

// AddAdjustment 添加调整项
// POST /bidding/rfps/:id/bids/:bidId/adjustments
func (h *BidHandler) AddAdjustment(c *gin.Context) {
	var req service.AdjustmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	adj, err := h.svc.AddAdjustment(c.Request.Context(), c.Param("id"), c.Param("bidId"), &req, GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, adj)
}

// UpdateAdjustment 更新调整项（含接受/拒绝）
// PUT /bidding/rfps/:id/bids/:bidId/adjustments/:adjId
func (h *BidHandler) UpdateAdjustment(c *gin.Context) {
	var req service.AdjustmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	adj, err := h.svc.UpdateAdjustment(c.Request.Context(), c.Param("id"), c.Param("bidId"), c.Param("adjId"), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, adj)
}

// DeleteAdjustment 删除调整项
// DELETE /bidding/rfps/:id/bids/:bidId/adjustments/:adjId
func (h *BidHandler) DeleteAdjustment(c *gin.Context) {
	if err := h.svc.DeleteAdjustment(c.Request.Context(), c.Param("id"), c.Param("bidId"), c.Param("adjId")); err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, nil)
}

// Submit 提交投标
// POST /bidding/rfps/:id/bids/:bidId/submit
func (h *BidHandler) Submit(c *gin.Context) {
	bid, err := h.svc.SubmitBid(c.Request.Context(), c.Param("id"), c.Param("bidId"), GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, bid)
}

// Withdraw 撤回投标
// POST /bidding/rfps/:id/bids/:bidId/withdraw
func (h *BidHandler) Withdraw(c *gin.Context) {
	bid, err := h.svc.WithdrawBid(c.Request.Context(), c.Param("id"), c.Param("bidId"), GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, bid)
}

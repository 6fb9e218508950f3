package handler

import (
	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// RFPHandler 招标单处理器
type RFPHandler struct {
	svc *service.RFPService
}

func NewRFPHandler(svc *service.RFPService) *RFPHandler {
	return &RFPHandler{svc: svc}
}

// List 招标单列表
// GET /bidding/rfps
func (h *RFPHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"project_id": c.Query("project_id"),
		"status":     c.Query("status"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.ListRFPs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// Get 招标单详情
// GET /bidding/rfps/:id
func (h *RFPHandler) Get(c *gin.Context) {
	rfp, err := h.svc.GetRFP(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, rfp)
}

// Create 创建招标单
// POST /bidding/rfps
func (h *RFPHandler) Create(c *gin.Context) {
	var req service.CreateRFPInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	rfp, err := h.svc.CreateRFP(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, rfp)
}

// Update 更新招标单
// PUT /bidding/rfps/:id
func (h *RFPHandler) Update(c *gin.Context) {
	var req service.UpdateRFPInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	rfp, err := h.svc.UpdateRFP(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, rfp)
}

// Publish 发布招标单
// POST /bidding/rfps/:id/publish
func (h *RFPHandler) Publish(c *gin.Context) {
	rfp, err := h.svc.PublishRFP(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, rfp)
}

// Cancel 取消招标单
// POST /bidding/rfps/:id/cancel
func (h *RFPHandler) Cancel(c *gin.Context) {
	rfp, err := h.svc.CancelRFP(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, rfp)
}

// AddLineItem 添加清单行项
// POST /bidding/rfps/:id/line-items
func (h *RFPHandler) AddLineItem(c *gin.Context) {
	var req service.LineItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	item, err := h.svc.AddLineItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdateLineItem 更新清单行项
// PUT /bidding/rfps/:id/line-items/:itemId
func (h *RFPHandler) UpdateLineItem(c *gin.Context) {
	var req service.LineItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateLineItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, item)
}

// DeleteLineItem 删除清单行项
// DELETE /bidding/rfps/:id/line-items/:itemId
func (h *RFPHandler) DeleteLineItem(c *gin.Context) {
	if err := h.svc.DeleteLineItem(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, nil)
}

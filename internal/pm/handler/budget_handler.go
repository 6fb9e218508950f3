package handler

import (
	"github.com/bitfantasy/sitepm/internal/pm/service"
	"github.com/gin-gonic/gin"
)

// BudgetHandler 预算科目处理器
type BudgetHandler struct {
	svc *service.BudgetService
}

func NewBudgetHandler(svc *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

// List 预算科目列表
// GET /pm/budget-items
func (h *BudgetHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"project_id": c.Query("project_id"),
		"status":     c.Query("status"),
		"search":     c.Query("search"),
	}
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResult(c, items, total, page, pageSize)
}

// Get 预算科目详情
// GET /pm/budget-items/:id
func (h *BudgetHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// Create 创建预算科目
// POST /pm/budget-items
func (h *BudgetHandler) Create(c *gin.Context) {
	var req service.CreateBudgetItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	item, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, item)
}

// Update 更新预算科目
// PUT /pm/budget-items/:id
func (h *BudgetHandler) Update(c *gin.Context) {
	var req service.UpdateBudgetItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	item, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// Balance 预算科目实时余额
// GET /pm/budget-items/:id/balance
func (h *BudgetHandler) Balance(c *gin.Context) {
	balance, err := h.svc.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, balance)
}

// Transactions 预算台账流水
// GET /pm/budget-items/:id/transactions
func (h *BudgetHandler) Transactions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListTransactions(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResult(c, items, total, page, pageSize)
}

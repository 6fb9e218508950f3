package handler

import (
	"github.com/bitfantasy/sitepm/internal/pm/service"
	"github.com/gin-gonic/gin"
)

// VendorHandler 供应商处理器
type VendorHandler struct {
	svc *service.VendorService
}

func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// List 供应商列表
// GET /pm/vendors
func (h *VendorHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"trade":  c.Query("trade"),
		"search": c.Query("search"),
	}
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResult(c, items, total, page, pageSize)
}

// Get 供应商详情
// GET /pm/vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	vendor, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// Create 创建供应商
// POST /pm/vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req service.CreateVendorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	vendor, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, vendor)
}

// Update 更新供应商
// PUT /pm/vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	var req service.UpdateVendorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	vendor, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// AddContact 添加联系人
// POST /pm/vendors/:id/contacts
func (h *VendorHandler) AddContact(c *gin.Context) {
	var req service.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	contact, err := h.svc.AddContact(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, contact)
}

// DeleteContact 删除联系人
// DELETE /pm/vendors/:id/contacts/:contactId
func (h *VendorHandler) DeleteContact(c *gin.Context) {
	if err := h.svc.DeleteContact(c.Request.Context(), c.Param("contactId")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// TabulationHandler 比价表处理器
type TabulationHandler struct {
	svc *service.TabulationService
}

func NewTabulationHandler(svc *service.TabulationService) *TabulationHandler {
	return &TabulationHandler{svc: svc}
}

// GetComparison 获取比价表
// GET /bidding/rfps/:id/comparison
func (h *TabulationHandler) GetComparison(c *gin.Context) {
	comparison, err := h.svc.BuildComparison(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	Success(c, comparison)
}

// Export 导出比价表，format=csv|xlsx
// GET /bidding/rfps/:id/comparison/export
func (h *TabulationHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "csv":
		data, filename, err := h.svc.ExportCSV(c.Request.Context(), c.Param("id"))
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	case "xlsx":
		f, filename, err := h.svc.ExportXLSX(c.Request.Context(), c.Param("id"))
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			InternalError(c, "写出Excel失败: "+err.Error())
		}
	default:
		BadRequest(c, "不支持的导出格式: "+format)
	}
}

package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/gin-gonic/gin"
)

// Handlers 招投标处理器集合
type Handlers struct {
	RFP        *RFPHandler
	Bid        *BidHandler
	Tabulation *TabulationHandler
	Leveling   *LevelingHandler
	Award      *AwardHandler
	Attachment *AttachmentHandler
}

// NewHandlers 创建招投标处理器集合
func NewHandlers(
	rfpSvc *service.RFPService,
	bidSvc *service.BidService,
	tabulationSvc *service.TabulationService,
	levelingSvc *service.LevelingService,
	awardSvc *service.AwardService,
	attachmentSvc *service.AttachmentService,
) *Handlers {
	return &Handlers{
		RFP:        NewRFPHandler(rfpSvc),
		Bid:        NewBidHandler(bidSvc),
		Tabulation: NewTabulationHandler(tabulationSvc),
		Leveling:   NewLevelingHandler(levelingSvc),
		Award:      NewAwardHandler(awardSvc),
		Attachment: NewAttachmentHandler(attachmentSvc),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// PreconditionFailed 业务前置条件拒绝，带规则名和期望/实际值供前端展示
func PreconditionFailed(c *gin.Context, pe *service.PreconditionError) {
	c.JSON(422, Response{
		Code:    42200,
		Message: pe.Message,
		Data: gin.H{
			"rule":     pe.Rule,
			"expected": pe.Expected,
			"actual":   pe.Actual,
		},
	})
}

// RespondServiceError 统一映射服务层错误
func RespondServiceError(c *gin.Context, err error) {
	var pe *service.PreconditionError
	if errors.As(err, &pe) {
		PreconditionFailed(c, pe)
		return
	}
	switch {
	case errors.Is(err, service.ErrRFPNotFound),
		errors.Is(err, service.ErrBidNotFound),
		errors.Is(err, service.ErrLineItemNotFound),
		errors.Is(err, service.ErrBidItemNotFound),
		errors.Is(err, service.ErrAdjustmentNotFound),
		errors.Is(err, service.ErrAwardNotFound),
		errors.Is(err, service.ErrBudgetItemNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrVendorNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrBidOpeningNotReached),
		errors.Is(err, service.ErrNoSubmittedBids):
		Error(c, 40900, err.Error())
	case errors.Is(err, service.ErrTimeout):
		Error(c, 50400, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// IsAdmin 当前用户是否有招投标管理角色
func IsAdmin(c *gin.Context) bool {
	roles, _ := c.Get("roles")
	if list, ok := roles.([]string); ok {
		for _, role := range list {
			if role == "bid_admin" {
				return true
			}
		}
	}
	return false
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

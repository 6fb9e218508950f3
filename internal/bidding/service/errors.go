package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRFPNotFound        = errors.New("rfp not found")
	ErrBidNotFound        = errors.New("bid not found")
	ErrLineItemNotFound   = errors.New("rfp line item not found")
	ErrBidItemNotFound    = errors.New("bid item not found")
	ErrAdjustmentNotFound = errors.New("adjustment not found")
	ErrAwardNotFound      = errors.New("award not found")
	ErrBudgetItemNotFound = errors.New("budget item not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrVendorNotFound     = errors.New("vendor not found")

	// ErrBidOpeningNotReached 开标时间未到，禁止比价（业务门禁，不是数据错误）
	ErrBidOpeningNotReached = errors.New("bid opening time has not passed")
	// ErrNoSubmittedBids RFP下没有已提交投标，无法比价
	ErrNoSubmittedBids = errors.New("rfp has no submitted bids")

	// ErrTimeout 事务超出时间上限被中止，可整体重试
	ErrTimeout = errors.New("operation timed out")
)

// 前置条件规则标识，随PreconditionError返回给调用方定位失败原因
const (
	RuleBidNotAwardable      = "bid_not_awardable"
	RuleRFPAlreadyAwarded    = "rfp_already_awarded"
	RuleAmountOutOfTolerance = "award_amount_out_of_tolerance"
	RuleAllocationMismatch   = "allocation_sum_mismatch"
	RuleInsufficientBudget   = "insufficient_budget"
	RuleRFPNotDraft          = "rfp_not_draft"
	RuleRFPNotPublished      = "rfp_not_published"
	RuleBidNotEditable       = "bid_not_editable"
	RuleBidAlreadyExists     = "bid_already_exists"
	RuleUnknownUnit          = "unknown_unit"
	RuleInvalidAdjustment    = "invalid_adjustment"
)

// PreconditionError 业务前置条件不满足。携带期望值/实际值，
// 让操作人能直接据此修正输入。
type PreconditionError struct {
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (e *PreconditionError) Error() string {
	if e.Expected != "" || e.Actual != "" {
		return fmt.Sprintf("%s: %s (expected %s, actual %s)", e.Rule, e.Message, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func precondition(rule, message, expected, actual string) *PreconditionError {
	return &PreconditionError{Rule: rule, Message: message, Expected: expected, Actual: actual}
}

func preconditionf(rule, expected, actual, format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Rule: rule, Message: fmt.Sprintf(format, args...), Expected: expected, Actual: actual}
}

// AsPrecondition 判断错误是否为前置条件失败
func AsPrecondition(err error) (*PreconditionError, bool) {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classifyTimeout 把超时类错误归一为ErrTimeout，调用方据此区分
// "可重试"与"业务拒绝"。
func classifyTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

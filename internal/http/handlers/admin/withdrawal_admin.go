package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"
	"github.com/shopspring/decimal"

	"github.com/gin-gonic/gin"
)

// WithdrawalCreateRequest 创建提现单请求
type WithdrawalCreateRequest struct {
	AffiliateID   uint   `json:"affiliate_id" binding:"required"`
	Method        string `json:"method"`
	CommissionIDs []uint `json:"commission_ids"`
	TargetAmount  string `json:"target_amount"`
}

// WithdrawalItemsRequest 挂载/移除佣金请求
type WithdrawalItemsRequest struct {
	CommissionIDs []uint `json:"commission_ids" binding:"required"`
}

// WithdrawalRejectRequest 驳回提现单请求
type WithdrawalRejectRequest struct {
	Reason      string `json:"reason" binding:"required"`
	ProcessedBy uint   `json:"processed_by"`
}

// WithdrawalApproveRequest 审批提现单请求
type WithdrawalApproveRequest struct {
	ProcessedBy uint `json:"processed_by"`
}

// WithdrawalMarkPaidRequest 打款确认请求
type WithdrawalMarkPaidRequest struct {
	PaymentReference  string `json:"payment_reference"`
	EvidenceReference string `json:"evidence_reference"`
	PaidAt            string `json:"paid_at"`
	ProcessedBy       uint   `json:"processed_by"`
}

// GetWithdrawals 获取提现单列表
func (h *Handler) GetWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	affiliateID, _ := strconv.ParseUint(c.Query("affiliate_id"), 10, 64)
	createdFrom, ok := parseTimeQuery(c, "created_from")
	if !ok {
		return
	}
	createdTo, ok := parseTimeQuery(c, "created_to")
	if !ok {
		return
	}

	filter := repository.WithdrawalListFilter{
		Page:         page,
		PageSize:     pageSize,
		AffiliateID:  uint(affiliateID),
		WithdrawalNo: c.Query("withdrawal_no"),
		Status:       c.Query("status"),
		CreatedFrom:  createdFrom,
		CreatedTo:    createdTo,
	}

	withdrawals, total, err := h.WithdrawalService.ListWithdrawals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.withdrawal_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, withdrawals, response.BuildPagination(page, pageSize, total))
}

// GetWithdrawal 获取提现单详情
func (h *Handler) GetWithdrawal(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	withdrawal, err := h.WithdrawalService.GetWithdrawal(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.withdrawal_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.withdrawal_fetch_failed", err)
		return
	}
	response.Success(c, withdrawal)
}

// CreateWithdrawal 创建提现单
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req WithdrawalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input := service.CreateWithdrawalInput{
		AffiliateID:   req.AffiliateID,
		Method:        req.Method,
		CommissionIDs: req.CommissionIDs,
	}
	if req.TargetAmount != "" {
		target, err := decimal.NewFromString(req.TargetAmount)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		input.TargetAmount = &target
	}

	result, err := h.WithdrawalService.CreateWithdrawal(input)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, result)
}

// AttachWithdrawalCommissions 向提现单挂载佣金
func (h *Handler) AttachWithdrawalCommissions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req WithdrawalItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.WithdrawalService.AttachCommissions(id, req.CommissionIDs)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, result)
}

// DetachWithdrawalCommissions 从提现单移除佣金
func (h *Handler) DetachWithdrawalCommissions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req WithdrawalItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	withdrawal, err := h.WithdrawalService.DetachCommissions(id, req.CommissionIDs)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

// ApproveWithdrawal 审批提现单
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	// 请求体可为空，绑定失败时按默认值处理
	var req WithdrawalApproveRequest
	_ = c.ShouldBindJSON(&req)
	withdrawal, err := h.WithdrawalService.Approve(id, req.ProcessedBy)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

// RejectWithdrawal 驳回提现单
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req WithdrawalRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	withdrawal, err := h.WithdrawalService.Reject(id, req.Reason, req.ProcessedBy)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

// MarkWithdrawalPaid 确认打款
func (h *Handler) MarkWithdrawalPaid(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req WithdrawalMarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input := service.MarkPaidInput{
		PaymentReference:  req.PaymentReference,
		EvidenceReference: req.EvidenceReference,
		ProcessedBy:       req.ProcessedBy,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		input.PaidAt = &paidAt
	}

	withdrawal, err := h.WithdrawalService.MarkPaid(id, input)
	if err != nil {
		respondWithdrawalError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

// respondWithdrawalError 提现业务错误到响应码的映射
func respondWithdrawalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.withdrawal_not_found", nil)
	case errors.Is(err, service.ErrInvalidAffiliate):
		respondError(c, response.CodeBadRequest, "error.invalid_affiliate", nil)
	case errors.Is(err, service.ErrInvalidPrice):
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
	case errors.Is(err, service.ErrBelowMinWithdrawal):
		respondError(c, response.CodeBadRequest, "error.below_min_withdrawal", nil)
	case errors.Is(err, service.ErrRejectReasonRequired):
		respondError(c, response.CodeBadRequest, "error.reject_reason_required", nil)
	case errors.Is(err, service.ErrWithdrawalHasNoItems):
		respondError(c, response.CodeBadRequest, "error.withdrawal_has_no_items", nil)
	case errors.Is(err, service.ErrAlreadyReserved):
		respondError(c, response.CodeConflict, "error.commission_reserved", nil)
	case errors.Is(err, service.ErrNotEligible):
		respondError(c, response.CodeConflict, "error.commission_not_eligible", nil)
	case errors.Is(err, service.ErrInvalidStateTransition):
		respondError(c, response.CodeConflict, "error.invalid_state_transition", nil)
	default:
		respondError(c, response.CodeInternal, "error.withdrawal_operation_failed", err)
	}
}

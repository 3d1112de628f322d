package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CommissionRejectRequest 佣金驳回请求
type CommissionRejectRequest struct {
	Reason      string `json:"reason" binding:"required"`
	ProcessedBy uint   `json:"processed_by"`
}

// OrderStatusEventRequest 订单状态事件请求
type OrderStatusEventRequest struct {
	Status string `json:"status" binding:"required"`
	Async  bool   `json:"async"`
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(parsed), true
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return nil, false
	}
	return &parsed, true
}

// GetCommissions 获取佣金列表
func (h *Handler) GetCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	affiliateID, _ := strconv.ParseUint(c.Query("affiliate_id"), 10, 64)
	orderID, _ := strconv.ParseUint(c.Query("order_id"), 10, 64)
	createdFrom, ok := parseTimeQuery(c, "created_from")
	if !ok {
		return
	}
	createdTo, ok := parseTimeQuery(c, "created_to")
	if !ok {
		return
	}

	filter := repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: uint(affiliateID),
		OrderID:     uint(orderID),
		OrderNo:     c.Query("order_no"),
		Status:      c.Query("status"),
		RuleCode:    c.Query("rule_code"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	}

	commissions, total, err := h.CommissionService.ListCommissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, commissions, response.BuildPagination(page, pageSize, total))
}

// GetCommission 获取佣金详情
func (h *Handler) GetCommission(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	commission, err := h.CommissionService.GetCommission(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.commission_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.Success(c, commission)
}

// CalculateOrderCommissions 计算整单佣金
func (h *Handler) CalculateOrderCommissions(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.CommissionService.CalculateForOrder(orderID)
	if err != nil {
		respondCommissionError(c, err)
		return
	}
	response.Success(c, result)
}

// RecalculateOrderCommissions 重算整单佣金
func (h *Handler) RecalculateOrderCommissions(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.CommissionService.Recalculate(orderID)
	if err != nil {
		respondCommissionError(c, err)
		return
	}
	response.Success(c, result)
}

// ApplyOrderReturnPolicy 执行订单退货作废策略
func (h *Handler) ApplyOrderReturnPolicy(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	canceled, err := h.CommissionService.ApplyReturnPolicy(orderID)
	if err != nil {
		respondCommissionError(c, err)
		return
	}
	response.Success(c, gin.H{"canceled_count": canceled})
}

// RejectCommission 驳回单条佣金
func (h *Handler) RejectCommission(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommissionRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	commission, err := h.CommissionService.RejectCommission(id, req.Reason, req.ProcessedBy)
	if err != nil {
		respondCommissionError(c, err)
		return
	}
	response.Success(c, commission)
}

// ProcessEligibleCommissions 手动触发可提现晋升扫描
func (h *Handler) ProcessEligibleCommissions(c *gin.Context) {
	count, err := h.CommissionService.ProcessEligibleCommissions()
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_sweep_failed", err)
		return
	}
	response.Success(c, gin.H{"promoted_count": count})
}

// HandleOrderStatusEvent 接收订单状态事件，可同步处理或入队异步处理
func (h *Handler) HandleOrderStatusEvent(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req OrderStatusEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if req.Async && h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueOrderStatusChanged(queue.OrderStatusChangedPayload{
			OrderID: orderID,
			Status:  req.Status,
		}); err != nil {
			respondError(c, response.CodeInternal, "error.order_status_enqueue_failed", err)
			return
		}
		response.Success(c, gin.H{"enqueued": true})
		return
	}

	if err := h.CommissionService.HandleOrderStatusChanged(orderID, req.Status); err != nil {
		respondCommissionError(c, err)
		return
	}
	response.Success(c, gin.H{"enqueued": false})
}

// respondCommissionError 佣金业务错误到响应码的映射
func respondCommissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.not_found", nil)
	case errors.Is(err, service.ErrNoAffiliate):
		respondError(c, response.CodeBadRequest, "error.order_no_affiliate", nil)
	case errors.Is(err, service.ErrInvalidAffiliate):
		respondError(c, response.CodeBadRequest, "error.order_invalid_affiliate", nil)
	case errors.Is(err, service.ErrEmptyOrder):
		respondError(c, response.CodeBadRequest, "error.order_empty", nil)
	case errors.Is(err, service.ErrInvalidPrice):
		respondError(c, response.CodeBadRequest, "error.invalid_price", nil)
	case errors.Is(err, service.ErrRejectReasonRequired):
		respondError(c, response.CodeBadRequest, "error.reject_reason_required", nil)
	case errors.Is(err, service.ErrAlreadyReserved):
		respondError(c, response.CodeConflict, "error.commission_reserved", nil)
	case errors.Is(err, service.ErrInvalidStateTransition):
		respondError(c, response.CodeConflict, "error.invalid_state_transition", nil)
	default:
		respondError(c, response.CodeInternal, "error.commission_operation_failed", err)
	}
}

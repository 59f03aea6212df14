package admin

import (
	"errors"
	"io"
	"strconv"
	"strings"

	handlershared "github.com/hna-storefront/internal/http/handlers/shared"
	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/repository"
	"github.com/hna-storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// GetOrders 分页查询订单
func (h *Handler) GetOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		Priority:      strings.TrimSpace(c.Query("priority")),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
		AffiliateCode: strings.TrimSpace(c.Query("affiliate_code")),
	}

	orders, total, err := h.OrderService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 查询单个订单
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatus 更新订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.OrderStatusUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	order, err := h.OrderService.UpdateStatus(id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("order_status_updated",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"status", order.Status,
	)
	response.Success(c, order)
}

// OrderDispatchRequest 手工派单请求，vendor 为空时使用默认供应商
type OrderDispatchRequest struct {
	Vendor string `json:"vendor"`
}

// DispatchOrder 将已支付订单派发给供应商
func (h *Handler) DispatchOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req OrderDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	order, err := h.OrderService.Dispatch(c.Request.Context(), id, req.Vendor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrOrderAlreadyDispatched):
			respondError(c, response.CodeBadRequest, "error.order_already_dispatched", nil)
		case errors.Is(err, service.ErrOrderNotDispatchable):
			respondError(c, response.CodeBadRequest, "error.order_not_dispatchable", nil)
		case errors.Is(err, service.ErrSupplierNotConfigured):
			respondError(c, response.CodeBadRequest, "error.supplier_not_configured", nil)
		case errors.Is(err, service.ErrSupplierVendorInvalid):
			respondError(c, response.CodeBadRequest, "error.supplier_vendor_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("order_dispatched",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"supplier_order_id", order.SupplierOrderID,
	)
	response.Success(c, order)
}

// GetOrderAnalytics 查询订单分析汇总
func (h *Handler) GetOrderAnalytics(c *gin.Context) {
	analytics, err := h.OrderService.Analytics()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, analytics)
}

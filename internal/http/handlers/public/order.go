package public

import (
	"errors"
	"strings"

	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/i18n"
	"github.com/hna-storefront/internal/payment/checkout"
	"github.com/hna-storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// Checkout 前台下单：校验商品、扣减库存、创建订单并生成收银台会话
func (h *Handler) Checkout(c *gin.Context) {
	var req service.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	req.ClientIP = c.ClientIP()
	req.Locale = i18n.ResolveLocale(c)

	result, err := h.OrderService.Checkout(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderItemsEmpty):
			respondError(c, response.CodeBadRequest, "error.order_items_empty", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrProductInactive):
			respondError(c, response.CodeBadRequest, "error.product_inactive", nil)
		case errors.Is(err, service.ErrProductNoStock):
			respondError(c, response.CodeBadRequest, "error.product_no_stock", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		case errors.Is(err, checkout.ErrConfigInvalid),
			errors.Is(err, checkout.ErrRequestFailed),
			errors.Is(err, checkout.ErrResponseInvalid):
			respondError(c, response.CodeInternal, "error.payment_unavailable", err)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("checkout_created",
		"order_no", result.Order.OrderNo,
		"total_amount", result.Order.TotalAmount,
	)
	response.Success(c, result)
}

// GetOrderByNo 前台订单查询（客户凭订单号与邮箱核对）
func (h *Handler) GetOrderByNo(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if orderNo == "" || email == "" {
		respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		return
	}

	order, err := h.OrderService.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}
	response.Success(c, order)
}

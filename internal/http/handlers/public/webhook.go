package public

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/payment/checkout"
	"github.com/hna-storefront/internal/service"
	"github.com/hna-storefront/internal/supplier"

	"github.com/gin-gonic/gin"
)

const supplierSignatureHeader = "X-Supplier-Signature"

// CheckoutWebhook 收银台异步通知：按会话推进订单支付状态
func (h *Handler) CheckoutWebhook(c *gin.Context) {
	if h.CheckoutClient == nil {
		respondError(c, response.CodeInternal, "error.payment_unavailable", nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	headers := map[string]string{
		"Stripe-Signature": c.GetHeader("Stripe-Signature"),
	}
	event, err := h.CheckoutClient.VerifyWebhook(headers, body, time.Now())
	if err != nil {
		if errors.Is(err, checkout.ErrSignatureInvalid) {
			requestLog(c).Warnw("checkout_webhook_signature_rejected", "error", err)
			respondError(c, response.CodeBadRequest, "error.signature_invalid", nil)
			return
		}
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	switch {
	case event.Paid:
		order, err := h.OrderService.ConfirmPaymentBySession(event.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				requestLog(c).Warnw("checkout_webhook_order_missing",
					"session_id", event.SessionID,
					"order_no", event.OrderNo,
				)
				respondError(c, response.CodeNotFound, "error.not_found", nil)
				return
			}
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		requestLog(c).Infow("checkout_webhook_paid",
			"order_no", order.OrderNo,
			"session_id", event.SessionID,
			"event_type", event.EventType,
		)
		response.Success(c, gin.H{"order_no": order.OrderNo, "payment_status": order.PaymentStatus})
	case event.Expired:
		order, err := h.OrderService.MarkPaymentFailedBySession(event.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				respondError(c, response.CodeNotFound, "error.not_found", nil)
				return
			}
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		requestLog(c).Infow("checkout_webhook_expired",
			"order_no", order.OrderNo,
			"session_id", event.SessionID,
			"event_type", event.EventType,
		)
		response.Success(c, gin.H{"order_no": order.OrderNo, "payment_status": order.PaymentStatus})
	default:
		// 其他事件类型确认收到即可，避免对端重试
		requestLog(c).Debugw("checkout_webhook_ignored", "event_type", event.EventType)
		response.Success(c, gin.H{"ignored": true})
	}
}

// SupplierWebhookRequest 供应商回调载荷
type SupplierWebhookRequest struct {
	Event           string `json:"event" binding:"required"`
	OrderNo         string `json:"external_id" binding:"required"`
	SupplierOrderID string `json:"order_id"`
	TrackingNumber  string `json:"tracking_number"`
}

// SupplierWebhook 供应商回调：校验签名后同步生产/物流状态
func (h *Handler) SupplierWebhook(c *gin.Context) {
	if h.SupplierRegistry == nil || !h.SupplierRegistry.Enabled() {
		respondError(c, response.CodeInternal, "error.supplier_not_configured", nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.SupplierRegistry.VerifyWebhook(c.GetHeader(supplierSignatureHeader), body); err != nil {
		if errors.Is(err, supplier.ErrSignatureInvalid) {
			requestLog(c).Warnw("supplier_webhook_signature_rejected",
				"vendor", c.Param("vendor"),
				"error", err,
			)
			respondError(c, response.CodeBadRequest, "error.signature_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	var req SupplierWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}
	if strings.TrimSpace(req.Event) == "" || strings.TrimSpace(req.OrderNo) == "" {
		respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		return
	}

	order, err := h.OrderService.HandleSupplierEvent(service.SupplierEventInput{
		Vendor:          c.Param("vendor"),
		Event:           req.Event,
		OrderNo:         req.OrderNo,
		SupplierOrderID: req.SupplierOrderID,
		TrackingNumber:  req.TrackingNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderStatusInvalid):
			// 未知事件确认收到即可，避免对端重试
			requestLog(c).Debugw("supplier_webhook_ignored",
				"vendor", c.Param("vendor"),
				"event", req.Event,
			)
			response.Success(c, gin.H{"ignored": true})
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	response.Success(c, gin.H{"order_no": order.OrderNo, "status": order.Status})
}

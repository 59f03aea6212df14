package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/provider"
	"github.com/hna-storefront/internal/queue"
	"github.com/hna-storefront/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSupplierDispatch, c.handleSupplierDispatch)
	mux.HandleFunc(queue.TaskOrderStatusEmail, c.handleOrderStatusEmail)
}

func (c *Consumer) handleSupplierDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_supplier_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SupplierDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_supplier_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_supplier_dispatch_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_supplier_dispatch_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	_, err := c.OrderService.Dispatch(ctx, payload.OrderID, payload.Vendor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_supplier_dispatch_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderAlreadyDispatched):
			logger.Debugw("worker_supplier_dispatch_skip_already_dispatched", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderNotDispatchable):
			logger.Debugw("worker_supplier_dispatch_skip_not_dispatchable", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrSupplierNotConfigured):
			logger.Debugw("worker_supplier_dispatch_skip_no_supplier", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_supplier_dispatch_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleOrderStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_status_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_status_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_status_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_status_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	receiverEmail := strings.TrimSpace(order.CustomerEmail)
	if receiverEmail == "" {
		logger.Debugw("worker_order_status_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_status_email_skip_email_service_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = order.Status
	}
	input := service.OrderStatusEmailInput{
		OrderNo:        order.OrderNo,
		Status:         status,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		TrackingNumber: order.TrackingNumber,
	}
	if err := c.EmailService.SendOrderStatusEmail(receiverEmail, input, order.Locale); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_order_status_email_skip_disabled", "order_id", order.ID)
			return nil
		}
		logger.Warnw("worker_order_status_email_send_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"receiver_email", receiverEmail,
			"status", status,
			"error", err,
		)
		return err
	}
	return nil
}

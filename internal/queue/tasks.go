package queue

import (
	"encoding/json"

	"github.com/hna-storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSupplierDispatch 供应商派单任务
	TaskSupplierDispatch = constants.TaskSupplierDispatch
	// TaskOrderStatusEmail 订单状态邮件通知任务
	TaskOrderStatusEmail = constants.TaskOrderStatusEmail
)

// SupplierDispatchPayload 供应商派单任务载荷
type SupplierDispatchPayload struct {
	OrderID uint   `json:"order_id"`
	Vendor  string `json:"vendor,omitempty"`
}

// OrderStatusEmailPayload 订单状态邮件任务载荷
type OrderStatusEmailPayload struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

// NewSupplierDispatchTask 创建供应商派单任务
func NewSupplierDispatchTask(payload SupplierDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSupplierDispatch, body), nil
}

// NewOrderStatusEmailTask 创建订单状态邮件任务
func NewOrderStatusEmailTask(payload OrderStatusEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusEmail, body), nil
}

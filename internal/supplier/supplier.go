package supplier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
)

var (
	ErrConfigInvalid    = errors.New("supplier config invalid")
	ErrVendorUnknown    = errors.New("supplier vendor unknown")
	ErrRequestFailed    = errors.New("supplier request failed")
	ErrResponseInvalid  = errors.New("supplier response invalid")
	ErrSignatureInvalid = errors.New("supplier signature invalid")
)

// Client 供应商接入客户端
type Client interface {
	Vendor() string
	CreateOrder(ctx context.Context, order *models.Order) (string, error)
}

// Registry 按厂商名称分发的供应商注册表
type Registry struct {
	clients       map[string]Client
	defaultVendor string
	webhookSecret string
}

// NewRegistry 按配置构建供应商注册表
func NewRegistry(cfg config.SupplierConfig) (*Registry, error) {
	registry := &Registry{
		clients:       make(map[string]Client),
		defaultVendor: strings.ToLower(strings.TrimSpace(cfg.Default)),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}
	if strings.TrimSpace(cfg.Printful.APIKey) != "" {
		client, err := NewPrintfulClient(cfg.Printful)
		if err != nil {
			return nil, err
		}
		registry.clients[constants.SupplierVendorPrintful] = client
	}
	if strings.TrimSpace(cfg.Printify.APIKey) != "" {
		client, err := NewPrintifyClient(cfg.Printify)
		if err != nil {
			return nil, err
		}
		registry.clients[constants.SupplierVendorPrintify] = client
	}
	if registry.defaultVendor == "" {
		registry.defaultVendor = constants.SupplierVendorPrintful
	}
	return registry, nil
}

// Resolve 按厂商名称获取客户端，空名称回退默认厂商
func (r *Registry) Resolve(vendor string) (Client, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: registry is nil", ErrConfigInvalid)
	}
	normalized := strings.ToLower(strings.TrimSpace(vendor))
	if normalized == "" {
		normalized = r.defaultVendor
	}
	client, ok := r.clients[normalized]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVendorUnknown, normalized)
	}
	return client, nil
}

// Enabled 判断是否配置了任何供应商
func (r *Registry) Enabled() bool {
	return r != nil && len(r.clients) > 0
}

// VerifyWebhook 校验供应商回调签名
func (r *Registry) VerifyWebhook(signature string, body []byte) error {
	if r == nil || r.webhookSecret == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	provided := strings.ToLower(strings.TrimSpace(signature))
	if provided == "" {
		return fmt.Errorf("%w: signature is required", ErrSignatureInvalid)
	}
	expected := ComputeWebhookSignature(r.webhookSecret, body)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}
	return nil
}

// ComputeWebhookSignature 计算供应商回调签名
func ComputeWebhookSignature(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(body)
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// MapEventStatus 将供应商事件映射为订单状态
func MapEventStatus(event string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case constants.SupplierEventInProduction:
		return constants.OrderStatusInProduction, true
	case constants.SupplierEventFulfilled, constants.SupplierEventShipped:
		return constants.OrderStatusShipped, true
	case constants.SupplierEventCanceled:
		return constants.OrderStatusCancelled, true
	default:
		return "", false
	}
}

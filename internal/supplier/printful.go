package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
)

const defaultVendorTimeout = 10 * time.Second

// PrintfulClient Printful 接入实现
type PrintfulClient struct {
	apiBase    string
	apiKey     string
	httpClient *http.Client
}

// NewPrintfulClient 创建 Printful 客户端
func NewPrintfulClient(cfg config.SupplierVendorConfig) (*PrintfulClient, error) {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiBase == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: printful api_base and api_key are required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(apiBase); err != nil {
		return nil, fmt.Errorf("%w: printful api_base is invalid", ErrConfigInvalid)
	}
	timeout := defaultVendorTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &PrintfulClient{
		apiBase:    apiBase,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Vendor 厂商名称
func (c *PrintfulClient) Vendor() string {
	return constants.SupplierVendorPrintful
}

type printfulRecipient struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip,omitempty"`
}

type printfulItem struct {
	ExternalVariantID string `json:"external_variant_id,omitempty"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	RetailPrice       string `json:"retail_price,omitempty"`
}

type printfulOrderRequest struct {
	ExternalID string            `json:"external_id"`
	Recipient  printfulRecipient `json:"recipient"`
	Items      []printfulItem    `json:"items"`
}

// CreateOrder 推送订单到 Printful
func (c *PrintfulClient) CreateOrder(ctx context.Context, order *models.Order) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: client is nil", ErrConfigInvalid)
	}
	if order == nil || len(order.Items) == 0 {
		return "", fmt.Errorf("%w: order items are required", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	request := printfulOrderRequest{
		ExternalID: order.OrderNo,
		Recipient: printfulRecipient{
			Name:        order.CustomerName,
			Email:       order.CustomerEmail,
			Phone:       order.CustomerPhone,
			Address1:    order.ShipAddress,
			City:        order.ShipCity,
			StateCode:   order.ShipState,
			CountryCode: order.ShipCountry,
			Zip:         order.ShipZip,
		},
	}
	for _, item := range order.Items {
		request.Items = append(request.Items, printfulItem{
			ExternalVariantID: item.SupplierVariantID,
			Name:              item.Name,
			Quantity:          item.Quantity,
			RetailPrice:       item.UnitPrice.StringFixed(2),
		})
	}

	raw, err := doSupplierJSONRequest(ctx, c.httpClient, http.MethodPost, c.apiBase+"/orders", c.apiKey, request)
	if err != nil {
		return "", err
	}
	result, ok := raw["result"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: missing result object", ErrResponseInvalid)
	}
	externalID := readSupplierID(result, "id")
	if externalID == "" {
		return "", fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return externalID, nil
}

func doSupplierJSONRequest(ctx context.Context, client *http.Client, method, endpoint, apiKey string, payload interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, resp.StatusCode)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func readSupplierID(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	switch typed := raw[key].(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.0f", typed), ".0"), ".")
	default:
		return ""
	}
}

package supplier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
)

// PrintifyClient Printify 接入实现
type PrintifyClient struct {
	apiBase    string
	apiKey     string
	shopID     string
	httpClient *http.Client
}

// NewPrintifyClient 创建 Printify 客户端
func NewPrintifyClient(cfg config.SupplierVendorConfig) (*PrintifyClient, error) {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	apiKey := strings.TrimSpace(cfg.APIKey)
	shopID := strings.TrimSpace(cfg.ShopID)
	if apiBase == "" || apiKey == "" || shopID == "" {
		return nil, fmt.Errorf("%w: printify api_base, api_key and shop_id are required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(apiBase); err != nil {
		return nil, fmt.Errorf("%w: printify api_base is invalid", ErrConfigInvalid)
	}
	timeout := defaultVendorTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &PrintifyClient{
		apiBase:    apiBase,
		apiKey:     apiKey,
		shopID:     shopID,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Vendor 厂商名称
func (c *PrintifyClient) Vendor() string {
	return constants.SupplierVendorPrintify
}

type printifyAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country"`
	Region    string `json:"region,omitempty"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Zip       string `json:"zip,omitempty"`
}

type printifyLineItem struct {
	VariantID string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
}

type printifyOrderRequest struct {
	ExternalID string             `json:"external_id"`
	Label      string             `json:"label,omitempty"`
	LineItems  []printifyLineItem `json:"line_items"`
	AddressTo  printifyAddress    `json:"address_to"`
}

// CreateOrder 推送订单到 Printify
func (c *PrintifyClient) CreateOrder(ctx context.Context, order *models.Order) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: client is nil", ErrConfigInvalid)
	}
	if order == nil || len(order.Items) == 0 {
		return "", fmt.Errorf("%w: order items are required", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	firstName, lastName := splitCustomerName(order.CustomerName)
	request := printifyOrderRequest{
		ExternalID: order.OrderNo,
		Label:      order.OrderNo,
		AddressTo: printifyAddress{
			FirstName: firstName,
			LastName:  lastName,
			Email:     order.CustomerEmail,
			Phone:     order.CustomerPhone,
			Country:   order.ShipCountry,
			Region:    order.ShipState,
			Address1:  order.ShipAddress,
			City:      order.ShipCity,
			Zip:       order.ShipZip,
		},
	}
	for _, item := range order.Items {
		request.LineItems = append(request.LineItems, printifyLineItem{
			VariantID: item.SupplierVariantID,
			Quantity:  item.Quantity,
		})
	}

	endpoint := fmt.Sprintf("%s/shops/%s/orders.json", c.apiBase, c.shopID)
	raw, err := doSupplierJSONRequest(ctx, c.httpClient, http.MethodPost, endpoint, c.apiKey, request)
	if err != nil {
		return "", err
	}
	externalID := readSupplierID(raw, "id")
	if externalID == "" {
		return "", fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return externalID, nil
}

func splitCustomerName(name string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

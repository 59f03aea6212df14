package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hna-storefront/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("checkout config invalid")
	ErrRequestFailed    = errors.New("checkout request failed")
	ErrResponseInvalid  = errors.New("checkout response invalid")
	ErrSignatureInvalid = errors.New("checkout signature invalid")
)

const (
	defaultTimeout           = 12 * time.Second
	defaultWebhookToleranceS = 300
)

var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"VND": {},
}

// Client 托管收银台客户端
type Client struct {
	apiBase       string
	apiKey        string
	webhookSecret string
	successURL    string
	cancelURL     string
	currency      string
	timeout       time.Duration
	tolerance     int64
	httpClient    *http.Client
}

// LineItem 收银台会话商品行
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// SessionInput 创建收银台会话输入
type SessionInput struct {
	OrderNo  string
	OrderID  uint
	Currency string
	Items    []LineItem
}

// SessionResult 创建收银台会话返回
type SessionResult struct {
	SessionID string
	URL       string
	Status    string
}

// WebhookEvent 收银台回调解析结果
type WebhookEvent struct {
	EventID   string
	EventType string
	SessionID string
	OrderNo   string
	OrderID   uint
	Paid      bool
	Expired   bool
}

// NewClient 创建收银台客户端
func NewClient(cfg config.CheckoutConfig) (*Client, error) {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	apiKey := strings.TrimSpace(cfg.APIKey)
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if apiBase == "" || apiKey == "" || webhookSecret == "" {
		return nil, fmt.Errorf("%w: api_base, api_key and webhook_secret are required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(apiBase); err != nil {
		return nil, fmt.Errorf("%w: api_base is invalid", ErrConfigInvalid)
	}
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		apiBase:       apiBase,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		successURL:    strings.TrimSpace(cfg.SuccessURL),
		cancelURL:     strings.TrimSpace(cfg.CancelURL),
		currency:      currency,
		timeout:       timeout,
		tolerance:     defaultWebhookToleranceS,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

// CreateSession 创建托管收银台会话
func (c *Client) CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: client is nil", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	orderNo := strings.TrimSpace(input.OrderNo)
	if orderNo == "" {
		return nil, fmt.Errorf("%w: order_no is required", ErrConfigInvalid)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrConfigInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = c.currency
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", orderNo)
	form.Set("metadata[order_no]", orderNo)
	form.Set("metadata[order_id]", strconv.FormatUint(uint64(input.OrderID), 10))
	for i, item := range input.Items {
		minor, err := toMinorAmount(item.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(minor, 10))
		form.Set(prefix+"[price_data][product_data][name]", strings.TrimSpace(item.Name))
	}
	form.Add("payment_method_types[]", "card")

	respBody, statusCode, err := c.doFormRequest(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create checkout session status %d", ErrResponseInvalid, statusCode)
	}

	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := &SessionResult{
		SessionID: strings.TrimSpace(readString(raw, "id")),
		URL:       strings.TrimSpace(readString(raw, "url")),
		Status:    strings.TrimSpace(readString(raw, "status")),
	}
	if result.SessionID == "" || result.URL == "" {
		return nil, fmt.Errorf("%w: missing session id or url", ErrResponseInvalid)
	}
	return result, nil
}

// VerifyWebhook 校验并解析收银台回调
func (c *Client) VerifyWebhook(headers map[string]string, body []byte, now time.Time) (*WebhookEvent, error) {
	if c == nil || c.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}

	signatureHeader := getHeaderValue(headers, "Stripe-Signature")
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: signature header is required", ErrSignatureInvalid)
	}
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}
	if c.tolerance > 0 {
		delta := math.Abs(float64(now.Unix() - timestamp))
		if delta > float64(c.tolerance) {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
		}
	}

	expected := computeSignature(c.webhookSecret, timestamp, body)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}

	eventRaw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	eventType := strings.ToLower(strings.TrimSpace(readString(eventRaw, "type")))
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}
	dataRaw, ok := eventRaw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing data object", ErrResponseInvalid)
	}
	objectRaw, ok := dataRaw["object"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing event object", ErrResponseInvalid)
	}

	metadata := readMap(objectRaw, "metadata")
	event := &WebhookEvent{
		EventID:   strings.TrimSpace(readString(eventRaw, "id")),
		EventType: eventType,
		SessionID: strings.TrimSpace(readString(objectRaw, "id")),
		OrderNo:   strings.TrimSpace(readString(metadata, "order_no")),
		OrderID:   parseOrderID(metadata),
	}
	switch eventType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		event.Paid = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		event.Expired = true
	}
	if event.OrderNo == "" {
		event.OrderNo = strings.TrimSpace(readString(objectRaw, "client_reference_id"))
	}
	return event, nil
}

func parseOrderID(metadata map[string]interface{}) uint {
	if len(metadata) == 0 {
		return 0
	}
	raw := strings.TrimSpace(readString(metadata, "order_id"))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0
	}
	return uint(id)
}

func toMinorAmount(amount decimal.Decimal, currency string) (int64, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	scale := currencyScale(currency)
	minor := amount.Shift(int32(scale)).Round(0)
	return minor.IntPart(), nil
}

func currencyScale(currency string) int {
	upper := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[upper]; ok {
		return 0
	}
	return 2
}

func (c *Client) doFormRequest(ctx context.Context, method, path string, form url.Values) ([]byte, int, error) {
	endpoint := c.apiBase + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return body, resp.StatusCode, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	payload := strconv.FormatInt(timestamp, 10) + "." + string(body)
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(payload))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

func parseSignatureHeader(signatureHeader string) (int64, []string, error) {
	timestamp := int64(0)
	signatures := make([]string, 0)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil || parsed <= 0 {
				return 0, nil, fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}
	if timestamp <= 0 {
		return 0, nil, fmt.Errorf("%w: timestamp is missing", ErrSignatureInvalid)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: v1 signature is missing", ErrSignatureInvalid)
	}
	return timestamp, signatures, nil
}

func getHeaderValue(headers map[string]string, key string) string {
	if len(headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil || strings.TrimSpace(key) == "" {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strings.TrimSpace(strconv.FormatInt(int64(typed), 10))
	default:
		return ""
	}
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	mapped, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return mapped
}

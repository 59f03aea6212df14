package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的站点语言
const (
	LocaleEN = "en-US"
	LocaleZH = "zh-CN"
)

// DefaultLocale 默认语言
const DefaultLocale = LocaleEN

// NormalizeLocale 归一化语言标识
func NormalizeLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case strings.HasPrefix(l, "zh"):
		return LocaleZH
	case strings.HasPrefix(l, "en"):
		return LocaleEN
	default:
		return DefaultLocale
	}
}

// ResolveLocale 从请求解析语言（query lang 优先于 Accept-Language）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		return NormalizeLocale(tag)
	}
	return DefaultLocale
}

// T 查找翻译文案，未命中时返回 key 本身
func T(locale, key string) string {
	normalized := NormalizeLocale(locale)
	if catalog, ok := catalogs[normalized]; ok {
		if message, ok := catalog[key]; ok {
			return message
		}
	}
	if message, ok := catalogs[DefaultLocale][key]; ok {
		return message
	}
	return key
}

// Sprintf 查找带占位符的翻译文案并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

var catalogs = map[string]map[string]string{
	LocaleEN: {
		"error.internal":              "internal server error",
		"error.invalid_params":        "invalid request parameters",
		"error.bad_request":           "bad request",
		"error.not_found":             "resource not found",
		"error.unauthorized":          "unauthorized",
		"error.forbidden":             "access denied",
		"error.user_disabled":         "account disabled",
		"error.token_invalid":         "token is invalid",
		"error.token_revoked":         "token has been revoked",
		"error.auth_header_missing":   "authorization header is missing",
		"error.auth_header_invalid":   "authorization header is invalid",
		"error.jwt_secret_missing":    "server auth is not configured",
		"error.admin_id_invalid":      "admin id is invalid",
		"error.admin_id_type_invalid": "admin id has unexpected type",

		"error.invalid_credentials":    "invalid username or password",
		"error.invalid_password":       "current password is incorrect",
		"error.captcha_required":       "captcha is required",
		"error.captcha_invalid":        "captcha verification failed",
		"error.captcha_config_invalid": "captcha is not configured correctly",

		"error.password_min_length":      "password must be at least %d characters",
		"error.password_require_upper":   "password must contain an uppercase letter",
		"error.password_require_lower":   "password must contain a lowercase letter",
		"error.password_require_number":  "password must contain a number",
		"error.password_require_special": "password must contain a special character",

		"error.rate_limited":           "too many requests, please try again later",
		"error.login_too_many":         "too many login attempts, please try again later",
		"error.rate_limit_unavailable": "rate limiter unavailable",

		"error.affiliate_code_taken":  "affiliate code is already taken",
		"error.affiliate_email_taken": "affiliate email is already registered",
		"error.affiliate_disabled":    "affiliate is disabled",
		"error.amount_invalid":        "amount is invalid",

		"error.product_sku_taken":        "product sku is already taken",
		"error.product_inactive":         "product is not available",
		"error.product_no_stock":         "product is out of stock",
		"error.order_items_empty":        "order items are required",
		"error.order_not_payable":        "order cannot be paid",
		"error.order_status_invalid":     "order status is invalid",
		"error.order_not_dispatchable":   "order cannot be dispatched",
		"error.order_already_dispatched": "order was already dispatched",
		"error.supplier_not_configured":  "no supplier is configured",
		"error.supplier_vendor_invalid":  "supplier vendor is invalid",
		"error.signature_invalid":        "signature verification failed",
		"error.payment_unavailable":      "payment service is unavailable",

		"order.status.pending":          "Pending",
		"order.status.processing":       "Processing",
		"order.status.sent_to_supplier": "Sent to supplier",
		"order.status.in_production":    "In production",
		"order.status.shipped":          "Shipped",
		"order.status.delivered":        "Delivered",
		"order.status.cancelled":        "Cancelled",

		"email.order_status.subject":        "Your order is %s",
		"email.order_status.body":           "Order %s is now %s.\nTotal: %s %s.",
		"email.order_status.body_shipped":   "Order %s is now %s.\nTotal: %s %s.\nTracking number: %s",
		"email.order_status.body_cancelled": "Order %s has been %s.\nTotal: %s %s.\nIf you were charged, the payment will be refunded.",
	},
	LocaleZH: {
		"error.internal":              "服务器内部错误",
		"error.invalid_params":        "请求参数无效",
		"error.bad_request":           "请求无效",
		"error.not_found":             "资源不存在",
		"error.unauthorized":          "未授权",
		"error.forbidden":             "没有访问权限",
		"error.user_disabled":         "账号已被禁用",
		"error.token_invalid":         "令牌无效",
		"error.token_revoked":         "令牌已失效",
		"error.auth_header_missing":   "缺少认证头",
		"error.auth_header_invalid":   "认证头格式无效",
		"error.jwt_secret_missing":    "服务端认证未配置",
		"error.admin_id_invalid":      "管理员 ID 无效",
		"error.admin_id_type_invalid": "管理员 ID 类型异常",

		"error.invalid_credentials":    "用户名或密码错误",
		"error.invalid_password":       "当前密码不正确",
		"error.captcha_required":       "请输入验证码",
		"error.captcha_invalid":        "验证码校验失败",
		"error.captcha_config_invalid": "验证码配置无效",

		"error.password_min_length":      "密码长度不能少于 %d 位",
		"error.password_require_upper":   "密码必须包含大写字母",
		"error.password_require_lower":   "密码必须包含小写字母",
		"error.password_require_number":  "密码必须包含数字",
		"error.password_require_special": "密码必须包含特殊字符",

		"error.rate_limited":           "请求过于频繁，请稍后再试",
		"error.login_too_many":         "登录尝试次数过多，请稍后再试",
		"error.rate_limit_unavailable": "限流服务不可用",

		"error.affiliate_code_taken":  "推广码已被占用",
		"error.affiliate_email_taken": "推广邮箱已被注册",
		"error.affiliate_disabled":    "推广成员已被禁用",
		"error.amount_invalid":        "金额无效",

		"error.product_sku_taken":        "商品 SKU 已被占用",
		"error.product_inactive":         "商品已下架",
		"error.product_no_stock":         "商品库存不足",
		"error.order_items_empty":        "订单商品不能为空",
		"error.order_not_payable":        "订单当前不可支付",
		"error.order_status_invalid":     "订单状态无效",
		"error.order_not_dispatchable":   "订单当前不可派单",
		"error.order_already_dispatched": "订单已派单",
		"error.supplier_not_configured":  "未配置供应商",
		"error.supplier_vendor_invalid":  "供应商厂商无效",
		"error.signature_invalid":        "签名校验失败",
		"error.payment_unavailable":      "支付服务暂不可用",

		"order.status.pending":          "待支付",
		"order.status.processing":       "处理中",
		"order.status.sent_to_supplier": "已派单",
		"order.status.in_production":    "生产中",
		"order.status.shipped":          "已发货",
		"order.status.delivered":        "已送达",
		"order.status.cancelled":        "已取消",

		"email.order_status.subject":        "您的订单状态：%s",
		"email.order_status.body":           "订单 %s 当前状态为 %s。\n金额：%s %s。",
		"email.order_status.body_shipped":   "订单 %s 当前状态为 %s。\n金额：%s %s。\n物流单号：%s",
		"email.order_status.body_cancelled": "订单 %s 已%s。\n金额：%s %s。\n如已付款将原路退回。",
	},
}

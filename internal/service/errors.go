package service

import "errors"

// 业务沉淀错误，供 handler 层 errors.Is 判定
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password too weak")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")

	ErrAffiliateStatusInvalid        = errors.New("affiliate status invalid")
	ErrAffiliateTierInvalid          = errors.New("affiliate tier invalid")
	ErrAffiliatePaymentMethodInvalid = errors.New("affiliate payment method invalid")
	ErrAffiliateDisabled             = errors.New("affiliate disabled")
	ErrAffiliateCodeTaken            = errors.New("affiliate code already taken")
	ErrAffiliateCodeInvalid          = errors.New("affiliate code invalid")
	ErrAffiliateEmailTaken           = errors.New("affiliate email already taken")
	ErrAmountInvalid                 = errors.New("amount invalid")

	ErrProductSKUTaken        = errors.New("product sku already taken")
	ErrProductInactive        = errors.New("product inactive")
	ErrProductNoStock         = errors.New("product out of stock")
	ErrOrderItemsEmpty        = errors.New("order items empty")
	ErrOrderNotPayable        = errors.New("order not payable")
	ErrOrderStatusInvalid     = errors.New("order status invalid")
	ErrOrderNotDispatchable   = errors.New("order not dispatchable")
	ErrOrderAlreadyDispatched = errors.New("order already dispatched")
	ErrSupplierNotConfigured  = errors.New("supplier not configured")
	ErrSupplierVendorInvalid  = errors.New("supplier vendor invalid")

	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

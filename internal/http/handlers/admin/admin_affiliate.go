package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/hna-storefront/internal/http/handlers/shared"
	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/repository"
	"github.com/hna-storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AffiliateCreateRequest 创建推广成员请求
type AffiliateCreateRequest struct {
	Name           string   `json:"name" binding:"required"`
	Email          string   `json:"email" binding:"required,email"`
	Code           string   `json:"code"`
	CommissionRate *float64 `json:"commission_rate"`
}

// AffiliateUpdateRequest 更新推广成员请求（nil 字段不更新）
type AffiliateUpdateRequest struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Code           *string  `json:"code"`
	Status         *string  `json:"status"`
	Tier           *string  `json:"tier"`
	CommissionRate *float64 `json:"commission_rate"`
	PaymentMethod  *string  `json:"payment_method"`
	PaymentDetails *string  `json:"payment_details"`
	Notes          *string  `json:"notes"`
}

// CreateAffiliate 创建推广成员
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req AffiliateCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	affiliate, err := h.AffiliateService.Create(service.AffiliateCreateInput{
		Name:           req.Name,
		Email:          req.Email,
		Code:           req.Code,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateCodeTaken):
			respondError(c, response.CodeBadRequest, "error.affiliate_code_taken", nil)
		case errors.Is(err, service.ErrAffiliateEmailTaken):
			respondError(c, response.CodeBadRequest, "error.affiliate_email_taken", nil)
		case errors.Is(err, service.ErrAffiliateCodeInvalid):
			respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("affiliate_created", "affiliate_id", affiliate.ID, "code", affiliate.Code)
	response.Success(c, affiliate)
}

// GetAffiliates 分页查询推广成员
func (h *Handler) GetAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Tier:     strings.TrimSpace(c.Query("tier")),
		Search:   strings.TrimSpace(c.Query("search")),
	}

	affiliates, total, err := h.AffiliateService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, affiliates, response.BuildPagination(page, pageSize, total))
}

// GetTopAffiliates 查询佣金排行
func (h *Handler) GetTopAffiliates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	affiliates, err := h.AffiliateService.Top(limit)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, affiliates)
}

// GetAffiliateStats 查询推广计划整体统计
func (h *Handler) GetAffiliateStats(c *gin.Context) {
	stats, err := h.AffiliateService.Stats()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, stats)
}

// GetAffiliateSalesReport 查询按商品聚合的推广销售报表
func (h *Handler) GetAffiliateSalesReport(c *gin.Context) {
	report, err := h.AffiliateService.SalesReport()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, report)
}

// GetAffiliate 查询单个推广成员
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, affiliate)
}

// UpdateAffiliate 更新推广成员
func (h *Handler) UpdateAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AffiliateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	affiliate, err := h.AffiliateService.Update(id, service.AffiliateUpdateInput{
		Name:           req.Name,
		Email:          req.Email,
		Code:           req.Code,
		Status:         req.Status,
		Tier:           req.Tier,
		CommissionRate: req.CommissionRate,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
		Notes:          req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrAffiliateCodeTaken):
			respondError(c, response.CodeBadRequest, "error.affiliate_code_taken", nil)
		case errors.Is(err, service.ErrAffiliateEmailTaken):
			respondError(c, response.CodeBadRequest, "error.affiliate_email_taken", nil)
		case errors.Is(err, service.ErrAffiliateStatusInvalid),
			errors.Is(err, service.ErrAffiliateTierInvalid),
			errors.Is(err, service.ErrAffiliatePaymentMethodInvalid),
			errors.Is(err, service.ErrAffiliateCodeInvalid),
			errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("affiliate_updated", "affiliate_id", affiliate.ID)
	response.Success(c, affiliate)
}

// DeleteAffiliate 删除推广成员
func (h *Handler) DeleteAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.AffiliateService.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	requestLog(c).Infow("affiliate_deleted", "affiliate_id", id)
	response.Success(c, nil)
}

// AffiliatePayRequest 佣金结算请求，amount 为空时结清全部未付佣金
type AffiliatePayRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// PayAffiliateCommission 结算推广佣金
func (h *Handler) PayAffiliateCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AffiliatePayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	result, err := h.AffiliateService.PayCommission(id, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("affiliate_commission_paid",
		"affiliate_id", id,
		"paid", result.Paid,
	)
	response.Success(c, result)
}

// AffiliateSaleRequest 手工登记成交请求
type AffiliateSaleRequest struct {
	Revenue decimal.Decimal `json:"revenue" binding:"required"`
}

// RecordAffiliateSale 手工登记一笔成交并计提佣金
func (h *Handler) RecordAffiliateSale(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AffiliateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	result, err := h.AffiliateService.RecordSale(id, req.Revenue)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrAffiliateDisabled):
			respondError(c, response.CodeBadRequest, "error.affiliate_disabled", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("affiliate_sale_recorded",
		"affiliate_id", id,
		"commission", result.Commission,
	)
	response.Success(c, result)
}

// parseIDParam 解析路径中的数字 ID
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		return 0, false
	}
	return uint(id), true
}

package service

import (
	"crypto/rand"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	affiliateCodeLength     = 8
	affiliateTopDefaultSize = 5
)

// AffiliateService 推广联盟业务服务
type AffiliateService struct {
	repo      repository.AffiliateRepository
	orderRepo repository.OrderRepository
}

// NewAffiliateService 创建推广联盟服务
func NewAffiliateService(repo repository.AffiliateRepository, orderRepo repository.OrderRepository) *AffiliateService {
	return &AffiliateService{
		repo:      repo,
		orderRepo: orderRepo,
	}
}

// AffiliateCreateInput 创建推广成员输入（CommissionRate 缺省取等级策略比例）
type AffiliateCreateInput struct {
	Name           string
	Email          string
	Code           string
	CommissionRate *float64
}

// AffiliateUpdateInput 更新推广成员输入（仅更新非空字段）
type AffiliateUpdateInput struct {
	Name           *string
	Email          *string
	Code           *string
	Status         *string
	Tier           *string
	CommissionRate *float64
	PaymentMethod  *string
	PaymentDetails *string
	Notes          *string
}

// AffiliateSaleResult 单次成交计提结果
type AffiliateSaleResult struct {
	Affiliate  *models.Affiliate `json:"affiliate"`
	Commission models.Money      `json:"commission"`
}

// AffiliatePayoutResult 佣金结算结果
type AffiliatePayoutResult struct {
	Affiliate *models.Affiliate `json:"affiliate"`
	Paid      models.Money      `json:"paid"`
}

// AffiliateProgramStats 推广计划统计数据
type AffiliateProgramStats struct {
	TotalAffiliates  int64            `json:"total_affiliates"`
	ActiveAffiliates int64            `json:"active_affiliates"`
	TotalRevenue     models.Money     `json:"total_revenue"`
	TotalCommission  models.Money     `json:"total_commission"`
	UnpaidCommission models.Money     `json:"unpaid_commission"`
	TotalClicks      int64            `json:"total_clicks"`
	TotalConversions int64            `json:"total_conversions"`
	ConversionRate   float64          `json:"conversion_rate"`
	TierBreakdown    map[string]int64 `json:"tier_breakdown"`
}

// AffiliateSalesReportItem 销售报表商品聚合行
type AffiliateSalesReportItem struct {
	Name          string       `json:"name"`
	Image         string       `json:"image"`
	TotalQuantity int64        `json:"total_quantity"`
	TotalRevenue  models.Money `json:"total_revenue"`
	Orders        int64        `json:"orders"`
}

// AffiliateSalesReportEntry 销售报表推广成员聚合行
type AffiliateSalesReportEntry struct {
	AffiliateCode   string                     `json:"affiliate_code"`
	Name            string                     `json:"name"`
	Tier            string                     `json:"tier"`
	TotalRevenue    models.Money               `json:"total_revenue"`
	TotalCommission models.Money               `json:"total_commission"`
	TotalQuantity   int64                      `json:"total_quantity"`
	Orders          int64                      `json:"orders"`
	Items           []AffiliateSalesReportItem `json:"items"`
}

// Create 创建推广成员（未指定推广码时自动生成）
func (s *AffiliateService) Create(input AffiliateCreateInput) (*models.Affiliate, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, ErrAffiliateCodeInvalid
	}
	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateEmailTaken
	}

	tier, rate := tierForSales(0)
	if input.CommissionRate != nil {
		custom := *input.CommissionRate
		if custom < 0 || custom > 100 {
			return nil, ErrAmountInvalid
		}
		rate = custom
	}
	customCode := normalizeAffiliateCode(input.Code)
	if customCode != "" {
		taken, err := s.repo.GetByCode(customCode)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrAffiliateCodeTaken
		}
		affiliate := &models.Affiliate{
			Name:           name,
			Email:          email,
			Code:           customCode,
			CommissionRate: rate,
			Tier:           tier,
			Status:         constants.AffiliateStatusActive,
		}
		if err := s.repo.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrAffiliateCodeTaken
			}
			return nil, err
		}
		return affiliate, nil
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		affiliate := &models.Affiliate{
			Name:           name,
			Email:          email,
			Code:           code,
			CommissionRate: rate,
			Tier:           tier,
			Status:         constants.AffiliateStatusActive,
		}
		if err := s.repo.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return affiliate, nil
	}
	return nil, ErrAffiliateCodeInvalid
}

// Get 按ID获取推广成员
func (s *AffiliateService) Get(id uint) (*models.Affiliate, error) {
	if id == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// GetByCode 按推广码获取推广成员
func (s *AffiliateService) GetByCode(code string) (*models.Affiliate, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	affiliate, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// List 查询推广成员列表（累计营收倒序）
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	if s.repo == nil {
		return []models.Affiliate{}, 0, nil
	}
	return s.repo.List(filter)
}

// Top 查询营收最高的活跃推广成员
func (s *AffiliateService) Top(limit int) ([]models.Affiliate, error) {
	if s.repo == nil {
		return []models.Affiliate{}, nil
	}
	if limit <= 0 {
		limit = affiliateTopDefaultSize
	}
	return s.repo.Top(limit)
}

// Update 更新推广成员（管理端可直接覆盖等级与佣金比例）
func (s *AffiliateService) Update(id uint, input AffiliateUpdateInput) (*models.Affiliate, error) {
	if id == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != "" {
			affiliate.Name = name
		}
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && email != affiliate.Email {
			existing, err := s.repo.GetByEmail(email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != affiliate.ID {
				return nil, ErrAffiliateEmailTaken
			}
			affiliate.Email = email
		}
	}
	if input.Code != nil {
		code := normalizeAffiliateCode(*input.Code)
		if code == "" {
			return nil, ErrAffiliateCodeInvalid
		}
		if code != affiliate.Code {
			existing, err := s.repo.GetByCode(code)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != affiliate.ID {
				return nil, ErrAffiliateCodeTaken
			}
			affiliate.Code = code
		}
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if !isKnownAffiliateStatus(status) {
			return nil, ErrAffiliateStatusInvalid
		}
		affiliate.Status = status
	}
	if input.Tier != nil {
		tier := strings.TrimSpace(*input.Tier)
		if !isKnownTier(tier) {
			return nil, ErrAffiliateTierInvalid
		}
		affiliate.Tier = tier
	}
	if input.CommissionRate != nil {
		rate := *input.CommissionRate
		if rate < 0 || rate > 100 {
			return nil, ErrAmountInvalid
		}
		affiliate.CommissionRate = rate
	}
	if input.PaymentMethod != nil {
		method := strings.ToLower(strings.TrimSpace(*input.PaymentMethod))
		if !isKnownAffiliatePaymentMethod(method) {
			return nil, ErrAffiliatePaymentMethodInvalid
		}
		affiliate.PaymentMethod = method
	}
	if input.PaymentDetails != nil {
		affiliate.PaymentDetails = strings.TrimSpace(*input.PaymentDetails)
	}
	if input.Notes != nil {
		affiliate.Notes = strings.TrimSpace(*input.Notes)
	}

	affiliate.UpdatedAt = time.Now()
	if err := s.repo.Update(affiliate); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAffiliateCodeTaken
		}
		return nil, err
	}
	return affiliate, nil
}

// Delete 删除推广成员（物理删除）
func (s *AffiliateService) Delete(id uint) error {
	if id == 0 || s.repo == nil {
		return ErrNotFound
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if affiliate == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}

// RecordClick 记录推广链接点击，返回归一化后的推广码
func (s *AffiliateService) RecordClick(code string) (string, error) {
	if s.repo == nil {
		return "", ErrNotFound
	}
	affiliate, err := s.repo.GetByCode(code)
	if err != nil {
		return "", err
	}
	if affiliate == nil {
		return "", ErrNotFound
	}
	if err := s.repo.IncrementClicks(affiliate.ID); err != nil {
		return "", err
	}
	return affiliate.Code, nil
}

// RecordSale 记录一笔成交：按成交前比例计提佣金，再重算等级
func (s *AffiliateService) RecordSale(id uint, revenue decimal.Decimal) (*AffiliateSaleResult, error) {
	if id == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	if revenue.LessThan(decimal.Zero) {
		return nil, ErrAmountInvalid
	}

	var result AffiliateSaleResult
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		affiliate, err := repoTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrNotFound
		}

		next, commission := applySale(*affiliate, revenue, time.Now())
		if err := repoTx.Update(&next); err != nil {
			return err
		}
		result.Affiliate = &next
		result.Commission = models.NewMoneyFromDecimal(commission)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordSaleByCodeTx 在既有事务内按推广码记录成交（订单支付确认时调用）
func (s *AffiliateService) RecordSaleByCodeTx(tx *gorm.DB, code string, revenue decimal.Decimal) (*AffiliateSaleResult, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	repoTx := s.repo.WithTx(tx)
	affiliate, err := repoTx.GetByCodeForUpdate(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(affiliate.Status) != constants.AffiliateStatusActive {
		return nil, ErrAffiliateDisabled
	}

	next, commission := applySale(*affiliate, revenue, time.Now())
	if err := repoTx.Update(&next); err != nil {
		return nil, err
	}
	return &AffiliateSaleResult{
		Affiliate:  &next,
		Commission: models.NewMoneyFromDecimal(commission),
	}, nil
}

// PayCommission 结算佣金：金额缺省结清全部，余额向下保底为零
func (s *AffiliateService) PayCommission(id uint, amount *decimal.Decimal) (*AffiliatePayoutResult, error) {
	if id == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	if amount != nil && amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrAmountInvalid
	}

	var result AffiliatePayoutResult
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		affiliate, err := repoTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrNotFound
		}

		unpaid := affiliate.UnpaidCommission.Decimal.Round(2)
		paid := unpaid
		if amount != nil {
			paid = amount.Round(2)
		}
		remaining := unpaid.Sub(paid).Round(2)
		if remaining.LessThan(decimal.Zero) {
			remaining = decimal.Zero
		}

		affiliate.UnpaidCommission = models.NewMoneyFromDecimal(remaining)
		affiliate.UpdatedAt = time.Now()
		if err := repoTx.Update(affiliate); err != nil {
			return err
		}
		result.Affiliate = affiliate
		result.Paid = models.NewMoneyFromDecimal(paid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats 汇总推广计划统计数据
func (s *AffiliateService) Stats() (AffiliateProgramStats, error) {
	stats := AffiliateProgramStats{
		TotalRevenue:     models.NewMoneyFromDecimal(decimal.Zero),
		TotalCommission:  models.NewMoneyFromDecimal(decimal.Zero),
		UnpaidCommission: models.NewMoneyFromDecimal(decimal.Zero),
		TierBreakdown:    make(map[string]int64),
	}
	if s.repo == nil {
		return stats, nil
	}
	agg, err := s.repo.GetStats()
	if err != nil {
		return stats, err
	}
	stats.TotalAffiliates = agg.TotalAffiliates
	stats.ActiveAffiliates = agg.ActiveAffiliates
	stats.TotalRevenue = models.NewMoneyFromDecimal(agg.TotalRevenue)
	stats.TotalCommission = models.NewMoneyFromDecimal(agg.TotalCommission)
	stats.UnpaidCommission = models.NewMoneyFromDecimal(agg.UnpaidCommission)
	stats.TotalClicks = agg.TotalClicks
	stats.TotalConversions = agg.TotalConversions
	stats.ConversionRate = calcAffiliateConversion(agg.TotalConversions, agg.TotalClicks)
	if agg.TierBreakdown != nil {
		stats.TierBreakdown = agg.TierBreakdown
	}
	return stats, nil
}

// SalesReport 按推广码聚合带归因订单的销售数据（营收倒序）
func (s *AffiliateService) SalesReport() ([]AffiliateSalesReportEntry, error) {
	if s.orderRepo == nil {
		return []AffiliateSalesReportEntry{}, nil
	}
	rows, err := s.orderRepo.SalesReportRows()
	if err != nil {
		return nil, err
	}
	codeRows, err := s.orderRepo.SalesReportCodeRows()
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]repository.SalesReportRow)
	for _, row := range rows {
		code := strings.TrimSpace(row.AffiliateCode)
		if code == "" {
			continue
		}
		grouped[code] = append(grouped[code], row)
	}

	entries := make([]AffiliateSalesReportEntry, 0, len(codeRows))
	for _, codeRow := range codeRows {
		code := strings.TrimSpace(codeRow.AffiliateCode)
		if code == "" {
			continue
		}
		group := grouped[code]
		items := make([]AffiliateSalesReportItem, 0, len(group))
		var totalQuantity int64
		for _, row := range group {
			totalQuantity += row.TotalQuantity
			items = append(items, AffiliateSalesReportItem{
				Name:          row.ItemName,
				Image:         row.ItemImage,
				TotalQuantity: row.TotalQuantity,
				TotalRevenue:  models.NewMoneyFromDecimal(row.TotalRevenue.Round(2)),
				Orders:        row.OrderCount,
			})
		}
		sort.SliceStable(items, func(i, j int) bool {
			left := items[i].TotalRevenue.Decimal
			right := items[j].TotalRevenue.Decimal
			if !left.Equal(right) {
				return left.GreaterThan(right)
			}
			return items[i].Name < items[j].Name
		})

		// 成员被删除后报表仍保留历史归因，名称与等级按缺省值回填
		name := strings.TrimSpace(codeRow.AffiliateName)
		if name == "" {
			name = "Unknown"
		}
		tier := strings.TrimSpace(codeRow.AffiliateTier)
		if tier == "" {
			tier = constants.AffiliateTierBronze
		}
		entries = append(entries, AffiliateSalesReportEntry{
			AffiliateCode:   code,
			Name:            name,
			Tier:            tier,
			TotalRevenue:    models.NewMoneyFromDecimal(codeRow.TotalRevenue.Round(2)),
			TotalCommission: models.NewMoneyFromDecimal(codeRow.TotalCommission.Round(2)),
			TotalQuantity:   totalQuantity,
			Orders:          codeRow.OrderCount,
			Items:           items,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		left := entries[i].TotalRevenue.Decimal
		right := entries[j].TotalRevenue.Decimal
		if !left.Equal(right) {
			return left.GreaterThan(right)
		}
		return entries[i].AffiliateCode < entries[j].AffiliateCode
	})
	return entries, nil
}

func isKnownAffiliateStatus(status string) bool {
	switch status {
	case constants.AffiliateStatusActive,
		constants.AffiliateStatusPending,
		constants.AffiliateStatusInactive,
		constants.AffiliateStatusSuspended:
		return true
	}
	return false
}

func isKnownAffiliatePaymentMethod(method string) bool {
	switch method {
	case "",
		constants.AffiliatePaymentMethodPaypal,
		constants.AffiliatePaymentMethodBank,
		constants.AffiliatePaymentMethodVenmo,
		constants.AffiliatePaymentMethodCashapp:
		return true
	}
	return false
}

func isKnownTier(tier string) bool {
	switch tier {
	case constants.AffiliateTierBronze,
		constants.AffiliateTierSilver,
		constants.AffiliateTierGold,
		constants.AffiliateTierPlatinum:
		return true
	}
	return false
}

func normalizeAffiliateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func calcAffiliateConversion(conversions, clicks int64) float64 {
	if clicks <= 0 || conversions <= 0 {
		return 0
	}
	value := (float64(conversions) / float64(clicks)) * 100
	return math.Round(value*100) / 100
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

package service

import (
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// tierPolicy 按累计成交笔数从高到低匹配等级
type tierPolicy struct {
	MinSales int64
	Tier     string
	Rate     float64
}

var tierPolicies = []tierPolicy{
	{MinSales: 100, Tier: constants.AffiliateTierPlatinum, Rate: 20},
	{MinSales: 50, Tier: constants.AffiliateTierGold, Rate: 15},
	{MinSales: 20, Tier: constants.AffiliateTierSilver, Rate: 12},
	{MinSales: 0, Tier: constants.AffiliateTierBronze, Rate: 10},
}

// tierForSales 根据累计成交笔数计算等级与佣金比例
func tierForSales(totalSales int64) (string, float64) {
	for _, policy := range tierPolicies {
		if totalSales >= policy.MinSales {
			return policy.Tier, policy.Rate
		}
	}
	return constants.AffiliateTierBronze, 10
}

// applySale 纯状态迁移：按成交前比例计提佣金，再累计计数并重算等级。
// 返回迁移后的成员状态与本次佣金金额。
func applySale(affiliate models.Affiliate, revenue decimal.Decimal, now time.Time) (models.Affiliate, decimal.Decimal) {
	amount := revenue.Round(2)
	rate := decimal.NewFromFloat(affiliate.CommissionRate)
	commission := amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

	affiliate.TotalSales++
	affiliate.Conversions++
	affiliate.TotalRevenue = models.NewMoneyFromDecimal(affiliate.TotalRevenue.Decimal.Add(amount))
	affiliate.TotalCommission = models.NewMoneyFromDecimal(affiliate.TotalCommission.Decimal.Add(commission))
	affiliate.UnpaidCommission = models.NewMoneyFromDecimal(affiliate.UnpaidCommission.Decimal.Add(commission))

	tier, nextRate := tierForSales(affiliate.TotalSales)
	affiliate.Tier = tier
	affiliate.CommissionRate = nextRate
	affiliate.UpdatedAt = now
	return affiliate, commission
}

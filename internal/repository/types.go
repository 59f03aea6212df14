package repository

import "time"

// AffiliateListFilter 查询推广成员列表的过滤条件
type AffiliateListFilter struct {
	Page     int
	PageSize int
	Status   string
	Tier     string
	Search   string
}

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	Tag        string
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	Status        string
	PaymentStatus string
	Priority      string
	OrderNo       string
	CustomerEmail string
	AffiliateCode string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

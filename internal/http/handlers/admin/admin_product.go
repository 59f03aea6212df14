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
)

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req service.ProductCreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	product, err := h.ProductService.Create(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductSKUTaken):
			respondError(c, response.CodeBadRequest, "error.product_sku_taken", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("product_created", "product_id", product.ID, "name", product.Name)
	response.Success(c, product)
}

// GetProducts 分页查询商品（含下架商品）
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Tag:      strings.TrimSpace(c.Query("tag")),
	}

	products, total, err := h.ProductService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetProduct 查询单个商品
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	product, err := h.ProductService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.ProductUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	product, err := h.ProductService.Update(id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrProductSKUTaken):
			respondError(c, response.CodeBadRequest, "error.product_sku_taken", nil)
		case errors.Is(err, service.ErrAmountInvalid):
			respondError(c, response.CodeBadRequest, "error.amount_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("product_updated", "product_id", product.ID)
	response.Success(c, product)
}

// DeleteProduct 删除商品（软删除）
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.ProductService.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	requestLog(c).Infow("product_deleted", "product_id", id)
	response.Success(c, nil)
}

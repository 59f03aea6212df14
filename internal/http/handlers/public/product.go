package public

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

// GetProducts 前台商品列表（仅上架商品）
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		Tag:        strings.TrimSpace(c.Query("tag")),
		OnlyActive: true,
	}

	products, total, err := h.ProductService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetProduct 前台商品详情（下架商品视为不存在）
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
		return
	}

	product, err := h.ProductService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if !product.IsActive {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}
	response.Success(c, product)
}

package public

import (
	"errors"

	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// RecordAffiliateClick 记录推广链接点击
func (h *Handler) RecordAffiliateClick(c *gin.Context) {
	code, err := h.AffiliateService.RecordClick(c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"code": code})
}

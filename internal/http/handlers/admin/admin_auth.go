package admin

import (
	"errors"
	"time"

	handlershared "github.com/hna-storefront/internal/http/handlers/shared"
	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/i18n"
	"github.com/hna-storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	handlershared.CaptchaPayloadRequest
}

// LoginResponse 管理员登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt string                 `json:"expires_at"`
	Admin     map[string]interface{} `json:"admin"`
}

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	if h.CaptchaService != nil {
		if err := h.CaptchaService.VerifyLogin(req.ToServicePayload()); err != nil {
			switch {
			case errors.Is(err, service.ErrCaptchaRequired):
				respondError(c, response.CodeBadRequest, "error.captcha_required", nil)
			case errors.Is(err, service.ErrCaptchaInvalid):
				respondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
			case errors.Is(err, service.ErrCaptchaConfigInvalid):
				respondError(c, response.CodeInternal, "error.captcha_config_invalid", err)
			default:
				respondError(c, response.CodeInternal, "error.internal", err)
			}
			return
		}
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			requestLog(c).Infow("admin_login_rejected", "username", req.Username)
			respondError(c, response.CodeUnauthorized, "error.invalid_credentials", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	requestLog(c).Infow("admin_login_success", "admin_id", admin.ID, "username", admin.Username)
	response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Admin: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"is_super": admin.IsSuper,
		},
	})
}

// GetCaptcha 获取图形验证码挑战
func (h *Handler) GetCaptcha(c *gin.Context) {
	if h.CaptchaService == nil || !h.CaptchaService.LoginSceneEnabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		if errors.Is(err, service.ErrCaptchaConfigInvalid) {
			respondError(c, response.CodeInternal, "error.captcha_config_invalid", err)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// GetProfile 获取当前管理员信息
func (h *Handler) GetProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}
	response.Success(c, admin)
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdatePassword 修改当前管理员密码
func (h *Handler) UpdatePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrInvalidPassword):
			respondError(c, response.CodeBadRequest, "error.invalid_password", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondErrorWithMsg(c, response.CodeBadRequest, localizePasswordError(c, err), nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("admin_password_updated", "admin_id", adminID)
	response.Success(c, nil)
}

// localizePasswordError 将密码策略错误翻译为本地化文案
func localizePasswordError(c *gin.Context, err error) string {
	locale := i18n.ResolveLocale(c)
	type keyedError interface {
		Key() string
		Args() []interface{}
	}
	var ke keyedError
	if errors.As(err, &ke) {
		return i18n.Sprintf(locale, ke.Key(), ke.Args()...)
	}
	return i18n.T(locale, "error.invalid_params")
}

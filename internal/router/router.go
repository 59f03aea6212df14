package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hna-storefront/internal/authz"
	"github.com/hna-storefront/internal/cache"
	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/constants"
	adminhandlers "github.com/hna-storefront/internal/http/handlers/admin"
	publichandlers "github.com/hna-storefront/internal/http/handlers/public"
	"github.com/hna-storefront/internal/http/response"
	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}
	clickRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:affiliate_click", redisPrefix),
		WindowSeconds: cfg.Security.ClickRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClickRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 静态文件服务（上传的商品图片）
	r.Static("/uploads", "./uploads")

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 前台接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:id", publicHandler.GetProduct)
			public.POST("/affiliates/:code/click", RateLimitMiddleware(redisClient, clickRule, KeyByIP), publicHandler.RecordAffiliateClick)
			public.POST("/checkout", RateLimitMiddleware(redisClient, checkoutRule, KeyByIPAndJSONField("customer_email")), publicHandler.Checkout)
			public.GET("/orders/:order_no", publicHandler.GetOrderByNo)
		}

		// 异步通知（签名校验，不走登录态）
		apiV1.POST("/webhooks/checkout", publicHandler.CheckoutWebhook)
		apiV1.POST("/webhooks/supplier/:vendor", publicHandler.SupplierWebhook)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.GET("/captcha", adminHandler.GetCaptcha)
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/profile", adminHandler.GetProfile)
				authorized.PUT("/password", adminHandler.UpdatePassword)

				// 商品管理
				authorized.GET("/products", adminHandler.GetProducts)
				authorized.GET("/products/:id", adminHandler.GetProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 订单管理
				authorized.GET("/orders", adminHandler.GetOrders)
				authorized.GET("/orders/analytics", adminHandler.GetOrderAnalytics)
				authorized.GET("/orders/:id", adminHandler.GetOrder)
				authorized.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)
				authorized.POST("/orders/:id/dispatch", adminHandler.DispatchOrder)

				// 推广计划管理
				authorized.POST("/affiliates", adminHandler.CreateAffiliate)
				authorized.GET("/affiliates", adminHandler.GetAffiliates)
				authorized.GET("/affiliates/top", adminHandler.GetTopAffiliates)
				authorized.GET("/affiliates/stats", adminHandler.GetAffiliateStats)
				authorized.GET("/affiliates/sales-report", adminHandler.GetAffiliateSalesReport)
				authorized.GET("/affiliates/:id", adminHandler.GetAffiliate)
				authorized.PUT("/affiliates/:id", adminHandler.UpdateAffiliate)
				authorized.DELETE("/affiliates/:id", adminHandler.DeleteAffiliate)
				authorized.POST("/affiliates/:id/pay", adminHandler.PayAffiliateCommission)
				authorized.POST("/affiliates/:id/sales", adminHandler.RecordAffiliateSale)

				// 权限目录（供前端配置角色策略）
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" || item.Path == "/api/v1/admin/captcha" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}

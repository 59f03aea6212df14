package provider

import (
	"github.com/hna-storefront/internal/authz"
	"github.com/hna-storefront/internal/cache"
	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/payment/checkout"
	"github.com/hna-storefront/internal/queue"
	"github.com/hna-storefront/internal/repository"
	"github.com/hna-storefront/internal/service"
	"github.com/hna-storefront/internal/supplier"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	AffiliateRepo repository.AffiliateRepository
	ProductRepo   repository.ProductRepository
	OrderRepo     repository.OrderRepository

	// 外部接入
	CheckoutClient   *checkout.Client
	SupplierRegistry *supplier.Registry

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	CaptchaService   *service.CaptchaService
	EmailService     *service.EmailService
	AffiliateService *service.AffiliateService
	ProductService   *service.ProductService
	OrderService     *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化外部接入
	c.initIntegrations()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initIntegrations() {
	checkoutClient, err := checkout.NewClient(c.Config.Checkout)
	if err != nil {
		logger.Warnw("provider_init_checkout_failed", "error", err)
	} else {
		c.CheckoutClient = checkoutClient
	}

	registry, err := supplier.NewRegistry(c.Config.Supplier)
	if err != nil {
		logger.Warnw("provider_init_supplier_failed", "error", err)
	} else {
		c.SupplierRegistry = registry
	}
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.OrderRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.AffiliateService,
		c.CheckoutClient,
		c.SupplierRegistry,
		c.QueueClient,
	)
}

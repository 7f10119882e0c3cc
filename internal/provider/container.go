package provider

import (
	"net/http"
	"strings"
	"time"

	"github.com/leafbox-next/internal/authz"
	"github.com/leafbox-next/internal/cache"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/payment/omise"
	"github.com/leafbox-next/internal/payment/stripe"
	"github.com/leafbox-next/internal/queue"
	"github.com/leafbox-next/internal/repository"
	"github.com/leafbox-next/internal/service"

	"gorm.io/gorm"
)

// Container dependency container
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Metrics     *metrics.Metrics
	Gateways    service.Gateways
	Authz       *authz.Service

	// Repositories
	OrderRepo          *repository.GormOrderRepository
	ProductRepo        *repository.GormProductRepository
	LocationRepo       *repository.GormLocationRepository
	PaymentInfoRepo    *repository.GormPaymentInfoRepository
	PendingPaymentRepo *repository.GormPendingPaymentRepository
	DiscountRepo       *repository.GormDiscountRepository
	SettingRepo        *repository.GormSettingRepository

	// Services
	SettingService       *service.SettingService
	DiscountService      *service.DiscountService
	EmailService         *service.EmailService
	DiscordService       *service.DiscordService
	NotificationService  *service.NotificationService
	OrderService         *service.OrderService
	CheckoutService      *service.CheckoutService
	ReconcileService     *service.ReconcileService
	ManualPaymentService *service.ManualPaymentService
}

// NewContainer wires the repositories and services around an open
// database handle. The caller owns db and closes it.
func NewContainer(cfg *config.Config, db *gorm.DB, m *metrics.Metrics) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

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
		DB:          db,
		QueueClient: queueClient,
		Metrics:     m,
	}

	c.initRepositories()
	c.initAuthz()
	c.initGateways()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := c.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.LocationRepo = repository.NewLocationRepository(db)
	c.PaymentInfoRepo = repository.NewPaymentInfoRepository(db)
	c.PendingPaymentRepo = repository.NewPendingPaymentRepository(db)
	c.DiscountRepo = repository.NewDiscountRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

// initAuthz leaves Authz nil on failure, which limits the back office to
// the full access role.
func (c *Container) initAuthz() {
	svc, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_authz_roles_failed", "error", err)
	}
	c.Authz = svc
}

// initGateways leaves a gateway nil when it is disabled or misconfigured,
// which makes the matching checkout variant answer "gateway disabled".
func (c *Container) initGateways() {
	if c.Config.Omise.Enabled {
		returnURL := strings.TrimSpace(c.Config.Omise.ReturnURL)
		if returnURL == "" {
			returnURL = strings.TrimRight(c.Config.Server.PublicURL, "/") + "/payment/return?order={ORDER_NUMBER}"
		}
		timeout := time.Duration(c.Config.Omise.TimeoutSeconds) * time.Second
		client, err := omise.New(omise.Config{
			SecretKey:     c.Config.Omise.SecretKey,
			WebhookSecret: c.Config.Omise.WebhookSecret,
			APIBaseURL:    c.Config.Omise.APIBaseURL,
			ReturnURL:     returnURL,
			Timeout:       timeout,
		}, &http.Client{Timeout: timeout})
		if err != nil {
			logger.Errorw("provider_init_omise_failed", "error", err)
		} else {
			c.Gateways.Omise = client
		}
	}

	if c.Config.Stripe.Enabled {
		client, err := stripe.New(stripe.Config{
			SecretKey:               c.Config.Stripe.SecretKey,
			WebhookSecret:           c.Config.Stripe.WebhookSecret,
			SuccessURL:              c.Config.Stripe.SuccessURL,
			CancelURL:               c.Config.Stripe.CancelURL,
			WebhookToleranceSeconds: c.Config.Stripe.WebhookToleranceSeconds,
			PaymentMethodTypes:      c.Config.Stripe.PaymentMethodTypes,
		}, nil)
		if err != nil {
			logger.Errorw("provider_init_stripe_failed", "error", err)
		} else {
			c.Gateways.Stripe = client
		}
	}
}

func (c *Container) initServices() {
	cfg := c.Config
	c.SettingService = service.NewSettingService(c.SettingRepo, cfg.Shipping)
	c.DiscountService = service.NewDiscountService(c.DiscountRepo, c.QueueClient)
	c.EmailService = service.NewEmailService(&cfg.Email)
	c.DiscordService = service.NewDiscordService(cfg.Discord, nil)

	c.NotificationService = service.NewNotificationService(
		c.OrderRepo,
		c.PendingPaymentRepo,
		c.EmailService,
		c.DiscordService,
		c.QueueClient,
		c.Metrics,
		cfg.Notification,
	)

	c.OrderService = service.NewOrderService(
		c.DB,
		c.OrderRepo,
		c.ProductRepo,
		c.LocationRepo,
		c.PaymentInfoRepo,
		service.NewOrderNumberGenerator(c.OrderRepo, cfg.Order.Location()),
		service.NewPricingCalculator(c.SettingService),
		c.DiscountService,
		c.NotificationService,
		c.Metrics,
		service.OrderServiceOptions{
			Currency:      cfg.Order.Currency,
			RetryAttempts: cfg.Order.NumberRetryAttempts,
		},
	)
	c.CheckoutService = service.NewCheckoutService(c.OrderService, c.OrderRepo, c.Gateways, c.Metrics)
	c.ReconcileService = service.NewReconcileService(
		c.DB,
		c.OrderRepo,
		c.PaymentInfoRepo,
		c.PendingPaymentRepo,
		c.Gateways,
		c.NotificationService,
		c.DiscountService,
		c.Metrics,
	)
	c.ManualPaymentService = service.NewManualPaymentService(
		c.DB,
		c.OrderRepo,
		c.PaymentInfoRepo,
		c.ReconcileService,
		c.NotificationService,
	)
}

// Close releases the queue client and the redis pool.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

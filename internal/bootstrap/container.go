package bootstrap

import (
	"context"
	"time"

	"chatbot-billing-be/internal/config"
	"chatbot-billing-be/internal/controller"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/mailer"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/internal/service"
	"chatbot-billing-be/pkg/billing/credit"
	"chatbot-billing-be/pkg/billing/events"
	"chatbot-billing-be/pkg/billing/failedpayment"
	"chatbot-billing-be/pkg/billing/ledger"
	"chatbot-billing-be/pkg/billing/notify"
	"chatbot-billing-be/pkg/billing/usage"
	"chatbot-billing-be/pkg/gateway"
	"chatbot-billing-be/pkg/gateway/cashfree"
	"chatbot-billing-be/pkg/gateway/paypal"
	"chatbot-billing-be/pkg/gateway/razorpay"
	pktNats "chatbot-billing-be/pkg/nats"
	"chatbot-billing-be/pkg/ratelimit"
	"chatbot-billing-be/pkg/settings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const settingsCacheTTL = time.Minute

type Container struct {
	// Controllers
	PaymentController controller.IPaymentController
	UsageController   controller.IUsageController
	WebhookController controller.IWebhookController

	// Background workers (exposed for main.go to run)
	MailWorker *notify.Worker

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Production: cfg.App.Environment == "production",
		Level:      cfg.App.LogLevel,
		Service:    cfg.Tracing.ServiceName,
	})

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
		sysLogger,
	)

	// 2. Mail queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	mailQueue := notify.NewMailQueue(pubSub, sysLogger)
	mailWorker := notify.NewWorker(pubSub, emailService, sysLogger)

	// 3. Infrastructure
	// NATS
	var bus events.Bus
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS publisher, billing events disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		bus = natsPub
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	limiter := ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute, time.Minute, sysLogger)

	// 4. Billing domain
	settingsProvider := settings.NewCachedProvider(uowFactory, settingsCacheTTL, cfg.Support.FallbackAdminEmails, sysLogger)
	billingEvents := events.NewBusPublisher(bus, sysLogger)
	txLedger := ledger.New(sysLogger)
	creditManager := credit.NewManager(sysLogger)
	usageSyncer := usage.NewSyncer(sysLogger)
	failedPaymentHandler := failedpayment.NewHandler(settingsProvider, mailQueue, cfg.Support.ThreadBaseURL, sysLogger)

	paypalClient := paypal.NewClient(
		cfg.Payment.PaypalAPIBaseURL,
		cfg.Payment.PaypalClientID,
		cfg.Payment.PaypalClientSecret,
		sysLogger,
	)
	processors := []gateway.Processor{
		cashfree.New(cfg.Payment.CashfreeWebhookSecret),
		paypal.New(paypalClient, cfg.Payment.PaypalWebhookID),
		razorpay.New(cfg.Payment.RazorpayWebhookSecret),
	}

	// 5. Services
	paymentService := service.NewPaymentService(
		uowFactory,
		txLedger,
		creditManager,
		usageSyncer,
		billingEvents,
		cfg.Payment.DefaultCurrency,
		sysLogger,
	)
	tokenUsageService := service.NewTokenUsageService(uowFactory, usageSyncer, limiter, sysLogger)
	webhookService := service.NewWebhookService(
		uowFactory,
		processors,
		txLedger,
		creditManager,
		usageSyncer,
		failedPaymentHandler,
		billingEvents,
		sysLogger,
	)

	// 6. Controllers
	return &Container{
		PaymentController: controller.NewPaymentController(paymentService),
		UsageController:   controller.NewUsageController(tokenUsageService),
		WebhookController: controller.NewWebhookController(webhookService, sysLogger),

		MailWorker: mailWorker,
		Logger:     sysLogger,
	}
}

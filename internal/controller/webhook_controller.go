package controller

import (
	"net/http"

	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/serverutils"
	"chatbot-billing-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Cashfree(ctx *fiber.Ctx) error
	Paypal(ctx *fiber.Ctx) error
	Razorpay(ctx *fiber.Ctx) error
}

type webhookController struct {
	service service.IWebhookService
	logger  logger.ILogger
}

func NewWebhookController(service service.IWebhookService, logger logger.ILogger) IWebhookController {
	return &webhookController{service: service, logger: logger}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhook/payments")
	h.Post("/cashfree", c.Cashfree)
	h.Post("/paypal", c.Paypal)
	h.Post("/razorpay", c.Razorpay)
}

func (c *webhookController) Cashfree(ctx *fiber.Ctx) error {
	return c.handle(ctx, entity.ProviderCashfree)
}

func (c *webhookController) Paypal(ctx *fiber.Ctx) error {
	return c.handle(ctx, entity.ProviderPaypal)
}

func (c *webhookController) Razorpay(ctx *fiber.Ctx) error {
	return c.handle(ctx, entity.ProviderRazorpay)
}

func (c *webhookController) handle(ctx *fiber.Ctx, provider entity.PaymentProvider) error {
	// Signatures cover the exact bytes, so the body is copied before fiber reuses its buffer.
	body := append([]byte(nil), ctx.Body()...)
	headers := http.Header(ctx.GetReqHeaders())

	out, err := c.service.Process(ctx.UserContext(), provider, headers, body)
	if err != nil {
		status := ierr.HTTPStatusFromErr(err)
		c.logger.Warn("WEBHOOK", "Webhook rejected", map[string]interface{}{
			"provider": provider,
			"status":   status,
			"error":    err.Error(),
		})
		// 5xx tells the provider to retry.
		return serverutils.WriteError(ctx, err)
	}

	ack := dto.WebhookAckResponse{
		Provider: string(out.Provider),
		EventID:  out.EventID,
		Action:   string(out.Action),
	}
	if out.Transaction != nil {
		ack.OrderID = out.Transaction.OrderId
		ack.TransactionID = out.Transaction.Id
		ack.Status = string(out.Transaction.Status)
	}
	return ctx.JSON(serverutils.SuccessResponse("Webhook processed", ack))
}

package controller

import (
	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/pkg/result"
	"chatbot-billing-be/internal/pkg/serverutils"
	"chatbot-billing-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUsageController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	RegisterBot(ctx *fiber.Ctx) error
	CheckAvailability(ctx *fiber.Ctx) error
	Consume(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type usageController struct {
	service service.ITokenUsageService
}

func NewUsageController(service service.ITokenUsageService) IUsageController {
	return &usageController{service: service}
}

func (c *usageController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/usage", auth)
	h.Post("/bots/:botId/register", c.RegisterBot)
	h.Get("/bots/:botId/availability", c.CheckAvailability)
	h.Post("/bots/:botId/consume", c.Consume)
	h.Get("/bots/:botId/history", c.History)
	h.Get("/summary", c.Summary)
}

func botID(ctx *fiber.Ctx) (uint, error) {
	id, err := ctx.ParamsInt("botId")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid botId")
	}
	return uint(id), nil
}

func failureStatus(code result.Code) int {
	switch code {
	case result.CodeNoActivePlan, result.CodeNoTokenUsage:
		return fiber.StatusNotFound
	case result.CodeLimitExhausted:
		return fiber.StatusPaymentRequired
	case result.CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusBadRequest
	}
}

func writeResult[T any](ctx *fiber.Ctx, res result.Result[T]) error {
	value, ok := res.Value()
	if !ok {
		status := failureStatus(res.Code())
		return ctx.Status(status).JSON(&serverutils.Response[map[string]string]{
			Success: false,
			Code:    status,
			Message: res.Message(),
			Data:    map[string]string{"reason": string(res.Code())},
		})
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message(), value))
}

func (c *usageController) RegisterBot(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	bot, err := botID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.RegisterBot(ctx.UserContext(), userID, bot)
	if err != nil {
		return err
	}
	return writeResult(ctx, res)
}

func (c *usageController) CheckAvailability(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	bot, err := botID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.CheckAvailability(ctx.UserContext(), userID, bot)
	if err != nil {
		return err
	}
	return writeResult(ctx, res)
}

func (c *usageController) Consume(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	bot, err := botID(ctx)
	if err != nil {
		return err
	}

	var req dto.ConsumeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RecordConsumption(ctx.UserContext(), userID, bot, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Token consumption recorded", res))
}

func (c *usageController) Summary(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetUsageSummary(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching usage", res))
}

func (c *usageController) History(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	bot, err := botID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetBotHistory(ctx.UserContext(), userID, bot)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching usage history", res))
}

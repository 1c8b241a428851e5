package controller

import (
	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/pkg/serverutils"
	"chatbot-billing-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	CreateOrder(ctx *fiber.Ctx) error
	GetOrder(ctx *fiber.Ctx) error
	ActivateTrial(ctx *fiber.Ctx) error
	GetCredits(ctx *fiber.Ctx) error
	ListPlans(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
}

func NewPaymentController(service service.IPaymentService) IPaymentController {
	return &paymentController{service: service}
}

func (c *paymentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/payments", auth)
	h.Post("/orders", c.CreateOrder)
	h.Get("/orders/:orderId", c.GetOrder)
	h.Post("/trial", c.ActivateTrial)
	h.Get("/credits", c.GetCredits)
	h.Get("/plans", c.ListPlans)
}

func currentUser(ctx *fiber.Ctx) (uint, error) {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid claims")
	}
	return userID, nil
}

func (c *paymentController) CreateOrder(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateOrderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateOrder(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Order created", res))
}

func (c *paymentController) GetOrder(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetTransaction(ctx.UserContext(), userID, ctx.Params("orderId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching order", res))
}

func (c *paymentController) ActivateTrial(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.TrialRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ActivateTrial(ctx.UserContext(), userID, req.PlanID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Trial activated", res))
}

func (c *paymentController) GetCredits(ctx *fiber.Ctx) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetCreditStatus(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching credits", res))
}

func (c *paymentController) ListPlans(ctx *fiber.Ctx) error {
	res, err := c.service.ListPlans(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching plans", res))
}

package http

import (
	"github.com/cfuentes/bidroom/internal/user/domain"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes username registration and lookup. Sessions and credentials
// are an external collaborator; a username record is all the engine needs to
// accept an identity.
type Handler struct {
	repo domain.UserRepository
}

func NewHandler(repo domain.UserRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/user/register", h.register)
	api.Get("/user/:username", h.getUser)
}

type registerRequest struct {
	Username string `json:"username"`
}

func (h *Handler) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"msg":     "username is required",
		})
	}

	user, err := h.repo.Create(c.Context(), req.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"msg":     "failed to register user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	user, err := h.repo.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"msg":     "failed to look up user",
		})
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"msg":     "user not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

package http

import (
	"errors"

	"github.com/cfuentes/bidroom/internal/auction/application"
	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes the out-of-band HTTP surface: room creation, snapshot and
// history reads, and the explicit end/quit/delete commands. Mutations go
// through the same application service as the websocket protocol, so the
// invariants are enforced in exactly one place.
type Handler struct {
	service application.AuctionService
}

func NewHandler(service application.AuctionService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/auction/create", h.createAuction)
	api.Get("/auctions", h.listAuctions)
	api.Get("/auction/:roomID", h.getAuction)
	api.Get("/auction/:roomID/bids", h.getBidHistory)
	api.Post("/auction/:roomID/bid", h.placeBid)
	api.Post("/auction/:roomID/end", h.endAuction)
	api.Post("/auction/:roomID/quit", h.quitAuction)
	api.Delete("/auction/:roomID", h.deleteAuction)
	api.Get("/user/:username/auctions", h.getUserAuctions)
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotCreator):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrIndeterminate):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrConsecutiveBidder),
		errors.Is(err, domain.ErrCreatorCannotBid),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, application.ErrMissingFields):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForErr(err)).JSON(fiber.Map{
		"success": false,
		"msg":     err.Error(),
	})
}

type createAuctionRequest struct {
	Username        string  `json:"username"`
	Title           string  `json:"title"`
	ProductName     string  `json:"product_name"`
	Description     string  `json:"description"`
	StartingPrice   float64 `json:"starting_price"`
	DurationMinutes int     `json:"duration"`
}

func (h *Handler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, application.ErrMissingFields)
	}

	auction, err := h.service.CreateAuction(c.Context(), application.CreateAuctionDTO{
		CreatedBy:       req.Username,
		Title:           req.Title,
		ProductName:     req.ProductName,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"msg":     "Auction created successfully",
		"auction": fiber.Map{
			"room_id":        auction.RoomID,
			"title":          auction.Title,
			"starting_price": auction.StartingPrice,
			"current_bid":    auction.CurrentBid,
			"end_time":       auction.EndTime,
			"status":         auction.Status,
		},
	})
}

func (h *Handler) listAuctions(c *fiber.Ctx) error {
	auctions, err := h.service.ListAuctions(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"total_auctions": len(auctions),
		"auctions":       auctions,
	})
}

func (h *Handler) getAuction(c *fiber.Ctx) error {
	snapshot, err := h.service.GetRoomSnapshot(c.Context(), c.Params("roomID"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"auction": snapshot,
	})
}

func (h *Handler) getBidHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	bids, err := h.service.ListBids(c.Context(), c.Params("roomID"), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(bids)
}

type placeBidRequest struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}

func (h *Handler) placeBid(c *fiber.Ctx) error {
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, domain.ErrInvalidAmount)
	}

	bid, err := h.service.PlaceBid(c.Context(), application.PlaceBidDTO{
		RoomID:   c.Params("roomID"),
		Username: req.Username,
		Amount:   req.Amount,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"msg":     "Bid placed successfully",
		"bid": fiber.Map{
			"room_id":    bid.RoomID,
			"username":   bid.Username,
			"amount":     bid.Amount,
			"is_winning": bid.IsWinning,
			"placed_at":  bid.PlacedAt,
		},
	})
}

type actorRequest struct {
	Username string `json:"username"`
}

func (h *Handler) endAuction(c *fiber.Ctx) error {
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, domain.ErrNotCreator)
	}

	final, err := h.service.EndRoom(c.Context(), c.Params("roomID"), req.Username, domain.EndReasonCreator)
	if err != nil {
		return fail(c, err)
	}

	winner := final.Winner
	if winner == "" {
		winner = "No winner"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"msg":     "Auction ended successfully",
		"auction": fiber.Map{
			"room_id":     final.RoomID,
			"winner":      winner,
			"final_price": final.FinalPrice,
			"status":      final.Status,
		},
	})
}

func (h *Handler) quitAuction(c *fiber.Ctx) error {
	var req actorRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" {
		return fail(c, domain.ErrUserNotFound)
	}

	roster, err := h.service.Leave(c.Context(), c.Params("roomID"), req.Username, domain.LeaveManualQuit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"msg":          "Successfully quit the auction",
		"online_users": roster,
	})
}

func (h *Handler) deleteAuction(c *fiber.Ctx) error {
	var req actorRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" {
		return fail(c, domain.ErrNotCreator)
	}

	stats, err := h.service.DeleteAuction(c.Context(), c.Params("roomID"), req.Username)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"msg":         "Auction and related data deleted successfully",
		"final_stats": stats,
	})
}

func (h *Handler) getUserAuctions(c *fiber.Ctx) error {
	dto, err := h.service.ListUserAuctions(c.Context(), c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"auctions": dto,
	})
}

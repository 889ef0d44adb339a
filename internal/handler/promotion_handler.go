package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/gate"
	"github.com/smartedu-app/smartedu-api/internal/middleware"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/internal/service"
	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// PromotionHandler wires the promotion workflow HTTP routes.
type PromotionHandler struct {
	query    service.PromotionQueryService
	response service.PromotionResponseService
	gate     *gate.Gate
	logger   zerolog.Logger
}

// NewPromotionHandler constructs the handler. The gate is optional; when set
// a successful answer advances the caller's gate session.
func NewPromotionHandler(query service.PromotionQueryService, response service.PromotionResponseService, promotionGate *gate.Gate, logger zerolog.Logger) *PromotionHandler {
	return &PromotionHandler{
		query:    query,
		response: response,
		gate:     promotionGate,
		logger:   logger.With().Str("component", "promotion_handler").Logger(),
	}
}

// Register attaches promotion endpoints to the router group.
func (h *PromotionHandler) Register(router fiber.Router) {
	router.Get("/pending", h.pending)
	router.Post("/respond", middleware.RateLimit("promotion_respond", 10, time.Minute), h.respond)
	router.Get("/stats", middleware.RequireRole(models.RoleDirector), h.stats)
}

func (h *PromotionHandler) pending(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	pending, err := h.query.ListPendingForParent(c.UserContext(), userID, userRoleFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending promotions retrieved", pending)
}

func (h *PromotionHandler) respond(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.PromotionRespondRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.response.Respond(c.UserContext(), userID, userRoleFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.gate != nil {
		h.gate.Advance(userID)
	}

	// flat result shape, consumed by the decision screen
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PromotionHandler) stats(c *fiber.Ctx) error {
	yearID, err := parseQueryUint(c, "academicYearId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if yearID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "academicYearId is required")
	}

	stats, err := h.query.YearStats(c.UserContext(), *yearID)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *PromotionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidResponse):
		return utils.SendError(c, fiber.StatusBadRequest, "response must be yes or no")
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "only parents can answer promotions")
	case errors.Is(err, service.ErrNotPromotionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "promotion belongs to another parent")
	case errors.Is(err, service.ErrPromotionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "promotion not found")
	case errors.Is(err, service.ErrAcademicYearNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "academic year not found")
	case errors.Is(err, repository.ErrPromotionAnswered):
		return utils.SendError(c, fiber.StatusConflict, "promotion already answered")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("promotion request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

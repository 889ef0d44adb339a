package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/middleware"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/service"
	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// AcademicHandler wires the school structure HTTP routes.
type AcademicHandler struct {
	academic service.AcademicService
	rollover service.PromotionRolloverService
	logger   zerolog.Logger
}

// NewAcademicHandler constructs the handler.
func NewAcademicHandler(academic service.AcademicService, rollover service.PromotionRolloverService, logger zerolog.Logger) *AcademicHandler {
	return &AcademicHandler{
		academic: academic,
		rollover: rollover,
		logger:   logger.With().Str("component", "academic_handler").Logger(),
	}
}

// Register attaches the structure endpoints. Mutations are staff-only; the
// rollover trigger is reserved for directors.
func (h *AcademicHandler) Register(router fiber.Router) {
	staff := middleware.RequireRole(models.RoleDirector, models.RoleSupervisor)

	router.Get("/stages", h.listStages)
	router.Post("/stages", staff, h.createStage)
	router.Get("/levels", h.listLevels)
	router.Post("/levels", staff, h.createLevel)
	router.Get("/subjects", h.listSubjects)
	router.Post("/subjects", staff, h.createSubject)
}

// RegisterYears attaches academic year endpoints on their own group so the
// promotion routes can nest under the same prefix.
func (h *AcademicHandler) RegisterYears(router fiber.Router) {
	router.Get("", h.listYears)
	router.Post("", middleware.RequireRole(models.RoleDirector), h.createYear)
	router.Post("/:id/promotions/rollover", middleware.RequireRole(models.RoleDirector), h.runRollover)
}

func (h *AcademicHandler) listStages(c *fiber.Ctx) error {
	stages, err := h.academic.ListStages(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "stages retrieved", stages)
}

func (h *AcademicHandler) createStage(c *fiber.Ctx) error {
	var payload dto.StageCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stage, err := h.academic.CreateStage(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "stage created", stage)
}

func (h *AcademicHandler) listLevels(c *fiber.Ctx) error {
	stageID, err := parseQueryUint(c, "stage_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	levels, err := h.academic.ListLevels(c.UserContext(), stageID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "levels retrieved", levels)
}

func (h *AcademicHandler) createLevel(c *fiber.Ctx) error {
	var payload dto.LevelCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	level, err := h.academic.CreateLevel(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "level created", level)
}

func (h *AcademicHandler) listSubjects(c *fiber.Ctx) error {
	levelID, err := parseQueryUint(c, "level_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	subjects, err := h.academic.ListSubjects(c.UserContext(), levelID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "subjects retrieved", subjects)
}

func (h *AcademicHandler) createSubject(c *fiber.Ctx) error {
	var payload dto.SubjectCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	subject, err := h.academic.CreateSubject(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "subject created", subject)
}

func (h *AcademicHandler) listYears(c *fiber.Ctx) error {
	years, err := h.academic.ListYears(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "academic years retrieved", years)
}

func (h *AcademicHandler) createYear(c *fiber.Ctx) error {
	var payload dto.AcademicYearCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	year, err := h.academic.CreateYear(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "academic year created", year)
}

func (h *AcademicHandler) runRollover(c *fiber.Ctx) error {
	yearID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.rollover.Rollover(c.UserContext(), userIDFromContext(c), yearID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "promotion rollover finished", result)
}

func (h *AcademicHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStageNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "stage not found")
	case errors.Is(err, service.ErrLevelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "level not found")
	case errors.Is(err, service.ErrAcademicYearNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "academic year not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("academic request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/middleware"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/service"
	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// LessonHandler wires lesson and exercise HTTP routes.
type LessonHandler struct {
	lessons service.LessonService
	logger  zerolog.Logger
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(lessons service.LessonService, logger zerolog.Logger) *LessonHandler {
	return &LessonHandler{
		lessons: lessons,
		logger:  logger.With().Str("component", "lesson_handler").Logger(),
	}
}

// Register attaches lesson endpoints to the router group.
func (h *LessonHandler) Register(router fiber.Router) {
	teachers := middleware.RequireRole(models.RoleTeacher, models.RoleSupervisor, models.RoleDirector)

	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", teachers, h.create)
	router.Get("/:id/exercises", h.listExercises)
	router.Post("/:id/exercises", teachers, h.createExercise)
}

func (h *LessonHandler) list(c *fiber.Ctx) error {
	subjectID, err := parseQueryUint(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	lessons, err := h.lessons.List(c.UserContext(), dto.LessonFilter{SubjectID: subjectID, TeacherID: teacherID})
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lessons retrieved", lessons)
}

func (h *LessonHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	lesson, err := h.lessons.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson retrieved", lesson)
}

func (h *LessonHandler) create(c *fiber.Ctx) error {
	subjectID, _ := strconv.ParseUint(c.FormValue("subject_id"), 10, 64)
	payload := dto.LessonCreateRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		SubjectID:   uint(subjectID),
		TeacherID:   userIDFromContext(c),
	}

	resource, err := c.FormFile("resource")
	if err != nil {
		resource = nil
	}

	lesson, err := h.lessons.Create(c.UserContext(), payload, resource)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lesson created", lesson)
}

func (h *LessonHandler) listExercises(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exercises, err := h.lessons.ListExercises(c.UserContext(), lessonID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exercises retrieved", exercises)
}

func (h *LessonHandler) createExercise(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExerciseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.LessonID = lessonID

	exercise, err := h.lessons.CreateExercise(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exercise created", exercise)
}

func (h *LessonHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found")
	case errors.Is(err, service.ErrSubjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "subject not found")
	case errors.Is(err, service.ErrUnsupportedResource):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("lesson request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

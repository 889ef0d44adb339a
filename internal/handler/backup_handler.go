package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/service"
	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// BackupHandler wires the director-only backup routes.
type BackupHandler struct {
	backups service.BackupService
	logger  zerolog.Logger
}

// NewBackupHandler constructs the handler.
func NewBackupHandler(backups service.BackupService, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		backups: backups,
		logger:  logger.With().Str("component", "backup_handler").Logger(),
	}
}

// Register attaches backup endpoints to the router group. Role enforcement
// happens at the group level.
func (h *BackupHandler) Register(router fiber.Router) {
	router.Post("", h.run)
	router.Get("", h.list)
}

func (h *BackupHandler) run(c *fiber.Ctx) error {
	record, err := h.backups.Run(c.UserContext(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("backup run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "backup failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup completed", record)
}

func (h *BackupHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.backups.List(c.UserContext(), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("backup list failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "backups retrieved", records)
}

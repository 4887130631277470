package handler

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/students-api/internal/dto"
	"github.com/noah-isme/students-api/internal/service"
	"github.com/noah-isme/students-api/internal/utils"
)

const (
	msgStudentNotFound = "Student not found"
	msgInvalidBody     = "Invalid request body"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// StudentHandler wires the student endpoints.
type StudentHandler struct {
	service  service.StudentService
	transfer service.StudentTransferService
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler. transfer may be nil, which disables import and export.
func NewStudentHandler(service service.StudentService, transfer service.StudentTransferService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:  service,
		transfer: transfer,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group. guard runs before every write route.
func (h *StudentHandler) Register(router fiber.Router, guard ...fiber.Handler) {
	router.Get("", h.list)
	if h.transfer != nil {
		router.Get("/export", h.export)
		router.Post("/import", withGuard(guard, h.importStudents)...)
	}
	router.Get("/:id", h.get)
	router.Get("/:id/history", h.history)
	router.Post("", withGuard(guard, h.create)...)
	router.Put("/:id", withGuard(guard, h.update)...)
	router.Delete("/:id", withGuard(guard, h.delete)...)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	student, err := h.service.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			return utils.SendValidationErrors(c, validationErr.Errors)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create student")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to create student")
	}

	return utils.SendJSON(c, fiber.StatusCreated, student)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.service.List(c.UserContext(), c.Query("search"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to retrieve students")
	}

	return utils.SendJSON(c, fiber.StatusOK, students)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
	}

	student, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("student_id", id).Msg("failed to fetch student")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to retrieve student")
	}

	return utils.SendJSON(c, fiber.StatusOK, student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
	}

	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	student, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return utils.SendValidationErrors(c, validationErr.Errors)
		case errors.Is(err, service.ErrStudentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("student_id", id).Msg("failed to update student")
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to update student")
		}
	}

	return utils.SendJSON(c, fiber.StatusOK, student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("student_id", id).Msg("failed to delete student")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to delete student")
	}

	return utils.SendMessage(c, fiber.StatusOK, "Student deleted successfully")
}

func (h *StudentHandler) history(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
	}

	entries, err := h.service.History(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, msgStudentNotFound)
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("student_id", id).Msg("failed to fetch student history")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to retrieve student history")
	}

	return utils.SendJSON(c, fiber.StatusOK, entries)
}

func (h *StudentHandler) export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.transfer.Export(c.UserContext(), c.Query("search"), &buf); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to export students")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to export students")
	}

	c.Attachment("students.xlsx")
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func (h *StudentHandler) importStudents(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "A spreadsheet must be uploaded in the file field")
	}

	file, err := header.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	defer file.Close()

	result, err := h.transfer.Import(c.UserContext(), file, activityActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedSpreadsheet), errors.Is(err, service.ErrSpreadsheetLayout):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Int("imported", result.Imported).Msg("failed to import students")
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to import students")
		}
	}

	return utils.SendJSON(c, fiber.StatusOK, result)
}

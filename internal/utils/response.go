package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse is returned for not found, malformed and server failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists every field message of a rejected record.
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// SendJSON writes data with the given status.
func SendJSON(c *fiber.Ctx, status int, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(data)
}

// SendMessage sends a {"message": ...} body.
func SendMessage(c *fiber.Ctx, status int, message string) error {
	return SendJSON(c, status, MessageResponse{Message: message})
}

// SendError sends an {"error": ...} body with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}
	return SendJSON(c, status, ErrorResponse{Error: message})
}

// SendValidationErrors sends a 400 {"errors": [...]} body.
func SendValidationErrors(c *fiber.Ctx, messages []string) error {
	if messages == nil {
		messages = []string{}
	}
	return SendJSON(c, fiber.StatusBadRequest, ValidationErrorResponse{Errors: messages})
}

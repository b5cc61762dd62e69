package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	viewNotFound = "errors/404"
	viewInternal = "errors/500"
)

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return renderError(c, fiber.StatusNotFound, viewNotFound, router.ViewContext{
			"path": c.Path(),
		})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		code := fiber.StatusInternalServerError
		if fe != nil {
			code = fe.Code
		}
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(code)
	}

	status := statusForCategory(richErr)

	s.logger.Error("Request error",
		"error", richErr.Message,
		"category", richErr.Category,
		"status", status,
		"path", c.Path(),
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	if status == fiber.StatusNotFound {
		return renderError(c, status, viewNotFound, router.ViewContext{"path": c.Path()})
	}

	return renderError(c, status, viewInternal, router.ViewContext{
		"error":  richErr,
		"status": status,
	})
}

func renderError(c *fiber.Ctx, status int, view string, data router.ViewContext) error {
	if err := c.Status(status).Render(view, fiber.Map(data)); err != nil {
		return c.Status(status).SendString(fiber.ErrInternalServerError.Message)
	}
	return nil
}

// statusForCategory maps an error category to the response status. An
// explicit HTTP code on the error wins.
func statusForCategory(err *errors.Error) int {
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}

	switch err.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case errors.CategoryExternal:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

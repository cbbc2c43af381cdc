package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/domain"
)

// StatusFor maps an error returned by a handler to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrImageDecode),
		errors.Is(err, domain.ErrCalibrationMismatch),
		errors.Is(err, domain.ErrWeightNotDetected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransactionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateTransactionID):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrCredentialRejected):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
			return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
		}

		body := fiber.Map{"error": err.Error()}

		var mismatch *domain.CalibrationMismatchError
		var verr *domain.ValidationError
		var terr *domain.TransitionError
		switch {
		case errors.Is(err, domain.ErrWeightNotDetected):
			body["manual_entry_required"] = true
		case errors.As(err, &mismatch):
			body["fetched_weight"] = mismatch.Fetched
			body["entered_weight"] = mismatch.Entered
			body["tolerance"] = mismatch.Tolerance
		case errors.As(err, &verr):
			body["field"] = verr.Field
		case errors.As(err, &terr):
			body["state"] = terr.From
		}

		return c.Status(code).JSON(body)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"numislive/internal/domain"
)

// actorFromContext rebuilds the caller identity the auth middleware stashed
// on the context.
func actorFromContext(c echo.Context) domain.Actor {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	return domain.Actor{ID: userID, Role: role}
}

// errorResponse maps domain errors onto HTTP statuses. Unknown errors are a
// 500 with a generic message; the detail stays in the server log.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrBidNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrListingClosed),
		errors.Is(err, domain.ErrListingSold),
		errors.Is(err, domain.ErrListingHasBids),
		errors.Is(err, domain.ErrListingNotEligible):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrPayerMismatch):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

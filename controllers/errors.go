package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/services"
)

// settlementError maps engine errors onto the response envelope. Gateway
// failures are surfaced with the recorded attempt attached so the admin sees
// both the error and the audit entry.
func settlementError(c echo.Context, err error, result *models.SettlementResult) error {
	var ve *services.ValidationError
	var ge *services.GatewayError

	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request: " + ve.Error(),
		})
	case errors.Is(err, services.ErrLimitExceeded):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: "Amount exceeds the pending balance",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Record not found",
		})
	case errors.Is(err, services.ErrAlreadyRefunded):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Order is already refunded",
		})
	case errors.As(err, &ge):
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Payment gateway error: " + ge.Err.Error(),
			Data:    result,
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Operation failed: " + err.Error(),
		})
	}
}

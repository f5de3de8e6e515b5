package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
	"github.com/zaikaroot/zaika_backend/websocket"
)

type RefundController struct {
	settlement *services.SettlementService
	ledgers    repositories.LedgerStore
	hub        *websocket.Hub
}

func NewRefundController(settlement *services.SettlementService, ledgers repositories.LedgerStore, hub *websocket.Hub) *RefundController {
	return &RefundController{settlement: settlement, ledgers: ledgers, hub: hub}
}

// ProcessRefund refunds a customer for one order. COD orders are refunded by
// ledger record alone; online orders go through the payment gateway. A gateway
// failure still leaves a failed entry for audit and returns the gateway error.
func (rc *RefundController) ProcessRefund(c echo.Context) error {
	var req models.RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body: " + err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	result, err := rc.settlement.ProcessRefund(c.Request().Context(), &req)
	if err != nil {
		return settlementError(c, err, result)
	}

	if !result.Replayed {
		rc.hub.BroadcastToAdmins(websocket.Notification{
			Type:    websocket.NotificationTypeSettlement,
			Message: "Refund processed",
			Data:    result,
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Refund processed successfully",
		Data:    result,
	})
}

// GetRefundHistory lists refund ledger entries, newest first, including
// pending and failed attempts.
func (rc *RefundController) GetRefundHistory(c echo.Context) error {
	entries, err := rc.ledgers.ListRecent(c.Request().Context(), models.LedgerRefund, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch refund history: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Refund history retrieved successfully",
		Data:    entries,
	})
}

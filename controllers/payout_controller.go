package controllers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
	"github.com/zaikaroot/zaika_backend/utils"
	"github.com/zaikaroot/zaika_backend/websocket"
)

type PayoutController struct {
	settlement *services.SettlementService
	parties    repositories.PartyStore
	ledgers    repositories.LedgerStore
	hub        *websocket.Hub
}

func NewPayoutController(settlement *services.SettlementService, parties repositories.PartyStore, ledgers repositories.LedgerStore, hub *websocket.Hub) *PayoutController {
	return &PayoutController{settlement: settlement, parties: parties, ledgers: ledgers, hub: hub}
}

// GetPendingPayout returns a party's live reconciled payout position.
func (pc *PayoutController) GetPendingPayout(c echo.Context) error {
	partyType := c.Param("partyType")
	partyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid party ID",
		})
	}

	balance, err := pc.settlement.PayoutBalanceFor(c.Request().Context(), partyType, partyID)
	if err != nil {
		return settlementError(c, err, nil)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending payout retrieved successfully",
		Data:    balance,
	})
}

// GetPayoutAnomalies lists parties whose completed payouts exceed what they
// ever earned. Overpayments are reported, never hidden behind the clamp.
func (pc *PayoutController) GetPayoutAnomalies(c echo.Context) error {
	ctx := c.Request().Context()

	var anomalies []models.PendingBalance

	vendors, err := pc.parties.ListVendors(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch vendors: " + err.Error(),
		})
	}
	for _, v := range vendors {
		balance, err := pc.settlement.PayoutBalanceFor(ctx, models.PartyVendor, v.ID)
		if err != nil {
			continue
		}
		if balance.Overpaid {
			anomalies = append(anomalies, *balance)
		}
	}

	partners, err := pc.parties.ListPartners(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch delivery partners: " + err.Error(),
		})
	}
	for _, p := range partners {
		balance, err := pc.settlement.PayoutBalanceFor(ctx, models.PartyDeliveryPartner, p.ID)
		if err != nil {
			continue
		}
		if balance.Overpaid {
			anomalies = append(anomalies, *balance)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout anomalies retrieved successfully",
		Data:    anomalies,
	})
}

// RecordPayout records a payout to a vendor or delivery partner, through the
// gateway when requested and configured, manually otherwise.
func (pc *PayoutController) RecordPayout(c echo.Context) error {
	var req models.PayoutRequest
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

	result, err := pc.settlement.RecordPayout(c.Request().Context(), &req)
	if err != nil {
		return settlementError(c, err, result)
	}

	if !result.Replayed {
		pc.hub.BroadcastToAdmins(websocket.Notification{
			Type:    websocket.NotificationTypeSettlement,
			Message: "Payout recorded",
			Data:    result,
		})
		pc.emailReceipt(c, &req, result)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout recorded successfully",
		Data:    result,
	})
}

func (pc *PayoutController) emailReceipt(c echo.Context, req *models.PayoutRequest, result *models.SettlementResult) {
	partyID, err := primitive.ObjectIDFromHex(req.PartyID)
	if err != nil {
		return
	}
	var email, name string
	if req.PartyType == models.PartyVendor {
		if vendor, ferr := pc.parties.FindVendor(c.Request().Context(), partyID); ferr == nil {
			email, name = vendor.Email, vendor.BusinessName
		}
	} else {
		if partner, ferr := pc.parties.FindPartner(c.Request().Context(), partyID); ferr == nil {
			email, name = partner.Email, partner.FullName
		}
	}
	if email == "" {
		return
	}
	if err := utils.SendSettlementReceipt(email, name, "Payout", req.Amount, result.ReceiptID); err != nil {
		log.Printf("Failed to send payout receipt to %s: %v", email, err)
	}
}

// GetPayoutHistory lists payout ledger entries, newest first.
func (pc *PayoutController) GetPayoutHistory(c echo.Context) error {
	ctx := c.Request().Context()

	if partyParam := c.QueryParam("partyId"); partyParam != "" {
		partyID, err := primitive.ObjectIDFromHex(partyParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid party ID",
			})
		}
		entries, err := pc.ledgers.ListByParty(ctx, models.LedgerPayout, partyID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to fetch payout history: " + err.Error(),
			})
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payout history retrieved successfully",
			Data:    entries,
		})
	}

	entries, err := pc.ledgers.ListRecent(ctx, models.LedgerPayout, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch payout history: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout history retrieved successfully",
		Data:    entries,
	})
}

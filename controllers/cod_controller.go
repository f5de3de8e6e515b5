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

type CODController struct {
	settlement *services.SettlementService
	parties    repositories.PartyStore
	ledgers    repositories.LedgerStore
	hub        *websocket.Hub
}

func NewCODController(settlement *services.SettlementService, parties repositories.PartyStore, ledgers repositories.LedgerStore, hub *websocket.Hub) *CODController {
	return &CODController{settlement: settlement, parties: parties, ledgers: ledgers, hub: hub}
}

// GetCODDues lists every delivery partner's live COD position, recomputed from
// orders and the settlement ledger.
func (cc *CODController) GetCODDues(c echo.Context) error {
	ctx := c.Request().Context()

	partners, err := cc.parties.ListPartners(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch delivery partners: " + err.Error(),
		})
	}

	type partnerDue struct {
		PartnerName string `json:"partnerName"`
		models.CODBalance
	}
	dues := make([]partnerDue, 0, len(partners))
	for _, p := range partners {
		balance, _, err := cc.settlement.CODBalanceFor(ctx, p.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to compute COD balance: " + err.Error(),
			})
		}
		dues = append(dues, partnerDue{PartnerName: p.FullName, CODBalance: *balance})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "COD dues retrieved successfully",
		Data:    dues,
	})
}

// GetPartnerCOD returns one partner's COD balance with the unsettled orders
// an admin would tick off on a settlement.
func (cc *CODController) GetPartnerCOD(c echo.Context) error {
	partnerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID",
		})
	}

	balance, unsettled, err := cc.settlement.CODBalanceFor(c.Request().Context(), partnerID)
	if err != nil {
		return settlementError(c, err, nil)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "COD balance retrieved successfully",
		Data: map[string]interface{}{
			"balance":         balance,
			"unsettledOrders": unsettled,
		},
	})
}

// RecordSettlement records cash handed over by a delivery partner.
func (cc *CODController) RecordSettlement(c echo.Context) error {
	var req models.CODSettlementRequest
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

	result, err := cc.settlement.RecordCODSettlement(c.Request().Context(), &req)
	if err != nil {
		return settlementError(c, err, result)
	}

	if !result.Replayed {
		cc.hub.BroadcastToAdmins(websocket.Notification{
			Type:    websocket.NotificationTypeSettlement,
			Message: "COD settlement recorded",
			Data:    result,
		})
		cc.emailReceipt(c, &req, result)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "COD settlement recorded successfully",
		Data:    result,
	})
}

func (cc *CODController) emailReceipt(c echo.Context, req *models.CODSettlementRequest, result *models.SettlementResult) {
	partnerID, err := primitive.ObjectIDFromHex(req.PartnerID)
	if err != nil {
		return
	}
	partner, err := cc.parties.FindPartner(c.Request().Context(), partnerID)
	if err != nil || partner.Email == "" {
		return
	}
	// Best effort: a failed email never fails the settlement.
	if err := utils.SendSettlementReceipt(partner.Email, partner.FullName, "COD settlement", req.Amount, result.ReceiptID); err != nil {
		log.Printf("Failed to send settlement receipt to %s: %v", partner.Email, err)
	}
}

// GetSettlementHistory lists COD settlement ledger entries, newest first.
// Pending and failed entries stay visible for audit.
func (cc *CODController) GetSettlementHistory(c echo.Context) error {
	ctx := c.Request().Context()

	if partyParam := c.QueryParam("partnerId"); partyParam != "" {
		partnerID, err := primitive.ObjectIDFromHex(partyParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid partner ID",
			})
		}
		entries, err := cc.ledgers.ListByParty(ctx, models.LedgerCODSettlement, partnerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to fetch settlement history: " + err.Error(),
			})
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Settlement history retrieved successfully",
			Data:    entries,
		})
	}

	entries, err := cc.ledgers.ListRecent(ctx, models.LedgerCODSettlement, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch settlement history: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Settlement history retrieved successfully",
		Data:    entries,
	})
}

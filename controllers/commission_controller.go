package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zaikaroot/zaika_backend/middleware"
	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
)

type CommissionController struct {
	settlement *services.SettlementService
	parties    repositories.PartyStore
}

func NewCommissionController(settlement *services.SettlementService, parties repositories.PartyStore) *CommissionController {
	return &CommissionController{settlement: settlement, parties: parties}
}

// GetVendors lists every vendor with their effective commission rate.
func (cc *CommissionController) GetVendors(c echo.Context) error {
	vendors, err := cc.parties.ListVendors(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch vendors: " + err.Error(),
		})
	}

	type vendorView struct {
		models.Vendor
		EffectiveRate float64 `json:"effectiveCommissionRate"`
	}
	views := make([]vendorView, 0, len(vendors))
	for i := range vendors {
		views = append(views, vendorView{
			Vendor:        vendors[i],
			EffectiveRate: models.EffectiveCommissionRate(&vendors[i]),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Vendors retrieved successfully",
		Data:    views,
	})
}

// GetCommission returns a vendor's effective rate and change history.
func (cc *CommissionController) GetCommission(c echo.Context) error {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid vendor ID",
		})
	}
	ctx := c.Request().Context()

	vendor, err := cc.parties.FindVendor(ctx, vendorID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Vendor not found",
		})
	}
	history, err := cc.parties.ListCommissionChanges(ctx, vendorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch commission history: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission retrieved successfully",
		Data: map[string]interface{}{
			"vendorId":         vendor.ID.Hex(),
			"businessName":     vendor.BusinessName,
			"effectiveRate":    models.EffectiveCommissionRate(vendor),
			"customCommission": vendor.CustomCommission,
			"platformDefault":  models.DefaultCommissionRate,
			"history":          history,
		},
	})
}

// SetCommission changes a vendor's commission override with an audit trail.
func (cc *CommissionController) SetCommission(c echo.Context) error {
	var req models.CommissionRateRequest
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

	changedBy := ""
	if claims := middleware.GetUserFromToken(c); claims != nil {
		changedBy = claims.Email
	}

	change, err := cc.settlement.SetCommissionRate(c.Request().Context(), c.Param("id"), req.Rate, req.Reason, changedBy)
	if err != nil {
		return settlementError(c, err, nil)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission rate updated successfully",
		Data:    change,
	})
}

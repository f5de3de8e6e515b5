package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
)

type AnalyticsController struct {
	orders     repositories.OrderStore
	parties    repositories.PartyStore
	aggregator *services.AggregatorService
}

func NewAnalyticsController(orders repositories.OrderStore, parties repositories.PartyStore, aggregator *services.AggregatorService) *AnalyticsController {
	return &AnalyticsController{orders: orders, parties: parties, aggregator: aggregator}
}

func (ac *AnalyticsController) summary(c echo.Context) (*models.EarningsSummary, error) {
	ctx := c.Request().Context()
	orders, err := ac.orders.ScanOrders(ctx, models.OrderFilter{Statuses: models.SettleableStatuses})
	if err != nil {
		return nil, err
	}
	vendors, err := ac.parties.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	partners, err := ac.parties.ListPartners(ctx)
	if err != nil {
		return nil, err
	}
	return ac.aggregator.Aggregate(orders, vendors, partners, time.Now()), nil
}

// GetEarnings returns the platform earnings windows and the revenue trends.
func (ac *AnalyticsController) GetEarnings(c echo.Context) error {
	summary, err := ac.summary(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute earnings: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Earnings retrieved successfully",
		Data: map[string]interface{}{
			"asOf":               summary.AsOf,
			"today":              summary.Today,
			"week":               summary.Week,
			"month":              summary.Month,
			"allTime":            summary.AllTime,
			"dailyTrend":         summary.DailyTrend,
			"monthlyTrend":       summary.MonthlyTrend,
			"skippedFromWindows": summary.SkippedFromWindows,
		},
	})
}

// GetTopVendors ranks vendors by revenue or order count.
func (ac *AnalyticsController) GetTopVendors(c echo.Context) error {
	summary, err := ac.summary(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute rankings: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Top vendors retrieved successfully",
		Data:    ac.aggregator.TopVendors(summary, rankKey(c), rankLimit(c)),
	})
}

// GetTopPartners ranks delivery partners by earnings or order count.
func (ac *AnalyticsController) GetTopPartners(c echo.Context) error {
	summary, err := ac.summary(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute rankings: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Top delivery partners retrieved successfully",
		Data:    ac.aggregator.TopPartners(summary, rankKey(c), rankLimit(c)),
	})
}

func rankKey(c echo.Context) services.TopBy {
	if c.QueryParam("by") == "orders" {
		return services.TopByOrders
	}
	return services.TopByRevenue
}

func rankLimit(c echo.Context) int {
	limit := 10
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

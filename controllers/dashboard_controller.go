package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
)

const dashboardCacheKey = "zaika:dashboard:summary"

type DashboardController struct {
	orders     repositories.OrderStore
	parties    repositories.PartyStore
	aggregator *services.AggregatorService
	redis      *redis.Client
}

func NewDashboardController(orders repositories.OrderStore, parties repositories.PartyStore, aggregator *services.AggregatorService, redisClient *redis.Client) *DashboardController {
	return &DashboardController{
		orders:     orders,
		parties:    parties,
		aggregator: aggregator,
		redis:      redisClient,
	}
}

// GetDashboard returns the full earnings summary: platform windows, trends and
// per-party totals, all from one aggregation pass. The summary is cached in
// Redis for a minute as a display optimization; pass ?fresh=1 to bypass.
func (dc *DashboardController) GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()

	if dc.redis != nil && c.QueryParam("fresh") == "" {
		cached, err := dc.redis.Get(ctx, dashboardCacheKey).Result()
		if err == nil && cached != "" {
			var summary models.EarningsSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Dashboard summary retrieved successfully",
					Data:    summary,
				})
			}
		}
	}

	summary, err := dc.buildSummary(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to build dashboard summary: " + err.Error(),
		})
	}

	if dc.redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := dc.redis.Set(ctx, dashboardCacheKey, data, time.Minute).Err(); err != nil {
				log.Printf("Failed to cache dashboard summary: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Dashboard summary retrieved successfully",
		Data:    summary,
	})
}

func (dc *DashboardController) buildSummary(ctx context.Context) (*models.EarningsSummary, error) {
	orders, err := dc.orders.ScanOrders(ctx, models.OrderFilter{Statuses: models.SettleableStatuses})
	if err != nil {
		return nil, err
	}
	vendors, err := dc.parties.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	partners, err := dc.parties.ListPartners(ctx)
	if err != nil {
		return nil, err
	}
	return dc.aggregator.Aggregate(orders, vendors, partners, time.Now()), nil
}

package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zaikaroot/zaika_backend/controllers"
	"github.com/zaikaroot/zaika_backend/middleware"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/services"
	"github.com/zaikaroot/zaika_backend/websocket"
)

// RegisterAdminRoutes sets up the back-office API
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub) {
	// Repositories
	orderRepo := repositories.NewOrderRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	partyRepo := repositories.NewPartyRepository(db)

	// Services
	aggregator := services.NewAggregatorService()
	gateway := services.NewRazorpayService()
	settlement := services.NewSettlementService(orderRepo, ledgerRepo, partyRepo, gateway)

	// Controllers
	authController := controllers.NewAuthController(db)
	dashboardController := controllers.NewDashboardController(orderRepo, partyRepo, aggregator, redisClient)
	analyticsController := controllers.NewAnalyticsController(orderRepo, partyRepo, aggregator)
	codController := controllers.NewCODController(settlement, partyRepo, ledgerRepo, hub)
	payoutController := controllers.NewPayoutController(settlement, partyRepo, ledgerRepo, hub)
	refundController := controllers.NewRefundController(settlement, ledgerRepo, hub)
	commissionController := controllers.NewCommissionController(settlement, partyRepo)

	// Admin routes group
	admin := e.Group("/api/admin")

	// Public routes (no auth required)
	admin.POST("/login", authController.Login)

	// Protected routes (require admin authentication)
	protected := admin.Group("")
	protected.Use(middleware.JWTMiddleware())

	// Dashboard and analytics
	protected.GET("/dashboard", dashboardController.GetDashboard)
	protected.GET("/earnings", analyticsController.GetEarnings)
	protected.GET("/earnings/top-vendors", analyticsController.GetTopVendors)
	protected.GET("/earnings/top-partners", analyticsController.GetTopPartners)

	// COD settlements
	protected.GET("/settlements/cod/dues", codController.GetCODDues)
	protected.GET("/settlements/cod/partner/:id", codController.GetPartnerCOD)
	protected.POST("/settlements/cod", codController.RecordSettlement)
	protected.GET("/settlements/cod/history", codController.GetSettlementHistory)

	// Payouts
	protected.GET("/payouts/pending/:partyType/:id", payoutController.GetPendingPayout)
	protected.GET("/payouts/anomalies", payoutController.GetPayoutAnomalies)
	protected.POST("/payouts", payoutController.RecordPayout)
	protected.GET("/payouts/history", payoutController.GetPayoutHistory)

	// Refunds
	protected.POST("/refunds", refundController.ProcessRefund)
	protected.GET("/refunds/history", refundController.GetRefundHistory)

	// Commission management
	protected.GET("/vendors", commissionController.GetVendors)
	protected.GET("/vendors/:id/commission", commissionController.GetCommission)
	protected.PUT("/vendors/:id/commission", commissionController.SetCommission)

	// Live notifications for connected dashboards
	protected.GET("/ws", func(c echo.Context) error {
		claims := middleware.GetUserFromToken(c)
		adminID := ""
		if claims != nil {
			adminID = claims.AdminID
		}
		return websocket.HandleWebSocket(c, hub, adminID)
	})
}

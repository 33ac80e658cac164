package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"hail/internal/handler"
	"hail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler      *handler.RideHandler
	DriverHandler    *handler.DriverHandler
	PassengerHandler *handler.PassengerHandler
	WalletHandler    *handler.WalletHandler
	AdminHandler     *handler.AdminHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/accept", deps.RideHandler.AcceptRide)
			rides.POST("/:id/start", deps.RideHandler.StartRide)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/feedback", deps.RideHandler.LeaveFeedback)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.PUT("/:id/availability", deps.DriverHandler.SetAvailability)
			drivers.PUT("/:id/location", deps.DriverHandler.ReportLocation)
			drivers.GET("/:id/ride", deps.DriverHandler.CurrentRide)
		}

		passengers := v1.Group("/passengers")
		{
			passengers.POST("/register", deps.PassengerHandler.Register)
			passengers.GET("/nearby-drivers", deps.PassengerHandler.NearbyDrivers)
			passengers.GET("/:id", deps.PassengerHandler.GetPassenger)
			passengers.PUT("/:id/location", deps.PassengerHandler.UpdateLocation)
		}

		wallet := v1.Group("/wallet")
		{
			wallet.POST("/funds", deps.WalletHandler.AddFunds)
			wallet.GET("/:userId/balance", deps.WalletHandler.Balance)
			wallet.GET("/:userId/transactions", deps.WalletHandler.Transactions)
			wallet.GET("/:userId/rides", deps.WalletHandler.RideHistory)
		}

		withdrawals := v1.Group("/withdrawals")
		{
			withdrawals.POST("", deps.WalletHandler.CreateWithdrawal)
			withdrawals.GET("", deps.WalletHandler.ListWithdrawals)
			withdrawals.POST("/:id/process", deps.WalletHandler.ProcessWithdrawal)
		}

		admin := v1.Group("/admin")
		{
			admin.PUT("/prices", deps.AdminHandler.SetPrice)
			admin.GET("/prices", deps.AdminHandler.GetPrices)
			admin.POST("/discounts", deps.AdminHandler.SetDiscount)
			admin.GET("/discounts/active", deps.AdminHandler.GetActiveDiscount)
		}
	}

	return router
}

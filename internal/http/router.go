// Package http wires the gin router: middleware chain, role-scoped route
// groups, the websocket upgrade, and the health probe.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"royaltaxi/internal/http/handlers"
	"royaltaxi/internal/http/middleware"
	"royaltaxi/internal/modules/dispatch"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/realtime"
)

type RouterDeps struct {
	Rides         *ride.Service
	Dispatch      *dispatch.Service
	Drivers       *driver.Service
	Pricing       *pricing.Service
	Notifications *notification.Store
	Hub           *realtime.Hub
	JWTSecret     string
	Log           *logrus.Entry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"ws_listeners": deps.Hub.ListenerCounts(),
		})
	})

	auth := middleware.Auth(deps.JWTSecret)

	dispatcherH := handlers.NewDispatcherHandler(deps.Rides, deps.Dispatch, deps.Drivers)
	dispatcher := r.Group("/dispatcher", auth, middleware.RequireRole(middleware.RoleDispatcher, middleware.RoleAdmin))
	{
		dispatcher.POST("/orders", dispatcherH.CreateOrder)
		dispatcher.POST("/orders/:id/broadcast", dispatcherH.Rebroadcast)
		dispatcher.GET("/orders/:id/dispatch", dispatcherH.DispatchStatus)
		dispatcher.POST("/orders/:id/cancel", dispatcherH.CancelOrder)
		dispatcher.POST("/deposit", dispatcherH.Deposit)
		dispatcher.GET("/drivers/locations", dispatcherH.DriverLocations)
		dispatcher.POST("/drivers/:id/block", dispatcherH.BlockDriver)
		dispatcher.POST("/drivers/:id/unblock", dispatcherH.UnblockDriver)
	}

	driverH := handlers.NewDriverHandler(deps.Drivers, deps.Rides, deps.Notifications)
	driverG := r.Group("/driver", auth, middleware.RequireRole(middleware.RoleDriver))
	{
		driverG.POST("/status", driverH.SetStatus)
		driverG.POST("/rides/:id/accept", driverH.Accept)
		driverG.POST("/rides/:id/start", driverH.Start)
		driverG.POST("/rides/:id/complete", driverH.Complete)
		driverG.GET("/stats", driverH.Stats)
		driverG.GET("/notifications", driverH.Notifications)
	}

	riderH := handlers.NewRiderHandler(deps.Rides)
	rider := r.Group("/rider", auth, middleware.RequireRole(middleware.RoleRider))
	{
		rider.GET("/rides", riderH.History)
		rider.GET("/rides/current", riderH.Current)
		rider.GET("/rides/:id", riderH.Get)
		rider.GET("/rides/:id/status", riderH.Status)
		rider.POST("/rides/:id/cancel", riderH.Cancel)
	}

	adminH := handlers.NewAdminHandler(deps.Pricing, deps.Drivers)
	admin := r.Group("/admin", auth, middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("/config/commission-rate", adminH.GetCommissionRate)
		admin.PUT("/config/commission-rate", adminH.SetCommissionRate)
		admin.GET("/config/vehicle-rates", adminH.GetVehicleRates)
		admin.PUT("/config/vehicle-rates", adminH.SetVehicleRate)
		admin.PUT("/drivers/:id/approve", adminH.ApproveDriver)
		admin.PUT("/drivers/:id/unapprove", adminH.UnapproveDriver)
	}

	wsH := realtime.NewHandler(deps.Hub)
	r.GET("/ws", auth, wsH.Subscribe)

	return r
}

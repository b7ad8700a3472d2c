// Entry point: loads config, wires stores and services, runs the websocket
// hub and the HTTP server until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"royaltaxi/internal/config"
	httptransport "royaltaxi/internal/http"
	"royaltaxi/internal/infra"
	"royaltaxi/internal/logging"
	"royaltaxi/internal/modules/customer"
	"royaltaxi/internal/modules/dispatch"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("TAXI_JWT_SECRET is required")
	}
	if cfg.DB.DSN == "" {
		log.Fatal("TAXI_DB_DSN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("database connect")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	publisher := realtime.NewRedisPublisher(redisClient)
	hub := realtime.NewHub(redisClient, logging.Component(log, "hub"))
	go hub.Run(ctx)

	pricingStore := pricing.NewStore(dbPool)
	pricingSvc := pricing.NewService(pricingStore)

	notificationStore := notification.NewStore(dbPool)

	customerStore := customer.NewStore(dbPool)

	driverStore := driver.NewStore(dbPool)
	driverSvc := driver.NewService(driverStore, notificationStore, publisher, logging.Component(log, "driver"))

	rideStore := ride.NewStore(dbPool)

	candidateStore := dispatch.NewCandidateStore(dbPool)
	bookkeeper := dispatch.NewRedisBookkeeper(redisClient)

	// dispatch and ride reference each other through small interfaces:
	// dispatch needs pending pickups for re-broadcasts, ride triggers the
	// initial broadcast. Wire dispatch second and give it the ride service.
	rideSvc := ride.NewService(rideStore, pricingSvc, driverSvc, driverStore, customerStore, nil, notificationStore, publisher, logging.Component(log, "ride"))
	dispatchSvc := dispatch.NewService(candidateStore, rideSvc, bookkeeper, notificationStore, publisher, cfg.Dispatch.DefaultRadiusKm, logging.Component(log, "dispatch"))
	rideSvc.SetBroadcaster(dispatchSvc)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Rides:         rideSvc,
		Dispatch:      dispatchSvc,
		Drivers:       driverSvc,
		Pricing:       pricingSvc,
		Notifications: notificationStore,
		Hub:           hub,
		JWTSecret:     cfg.Auth.JWTSecret,
		Log:           logging.Component(log, "http"),
	})

	server := httptransport.NewServer(cfg.HTTP.Addr, router, logging.Component(log, "server"))
	if err := server.Run(ctx); err != nil {
		log.WithError(err).Fatal("server")
	}
}

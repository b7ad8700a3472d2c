package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"royaltaxi/internal/http/middleware"
	"royaltaxi/internal/modules/dispatch"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/types"
)

// DispatcherHandler serves the call-center operators: order intake,
// broadcast, cancellation, and driver administration.
type DispatcherHandler struct {
	rides    *ride.Service
	dispatch *dispatch.Service
	drivers  *driver.Service
}

func NewDispatcherHandler(rides *ride.Service, dispatchSvc *dispatch.Service, drivers *driver.Service) *DispatcherHandler {
	return &DispatcherHandler{rides: rides, dispatch: dispatchSvc, drivers: drivers}
}

type locationReq struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
	City    string  `json:"city"`
}

func (l locationReq) toLocation() ride.Location {
	return ride.Location{
		Point:   types.Point{Lat: l.Lat, Lng: l.Lng},
		Address: l.Address,
		City:    l.City,
	}
}

type createOrderReq struct {
	CustomerPhone string      `json:"customer_phone"`
	CustomerName  string      `json:"customer_name"`
	Pickup        locationReq `json:"pickup"`
	Dropoff       locationReq `json:"dropoff"`
	VehicleClass  string      `json:"vehicle_class"`
	RadiusKm      float64     `json:"radius_km"`
}

func (h *DispatcherHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, res, err := h.rides.CreateDispatchOrder(c.Request.Context(), ride.CreateCommand{
		DispatcherID:  middleware.UserID(c),
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		Pickup:        req.Pickup.toLocation(),
		Dropoff:       req.Dropoff.toLocation(),
		VehicleClass:  pricing.VehicleClass(req.VehicleClass),
		RadiusKm:      req.RadiusKm,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"ride": r, "broadcast": res})
}

type broadcastReq struct {
	RadiusKm float64 `json:"radius_km"`
}

func (h *DispatcherHandler) Rebroadcast(c *gin.Context) {
	var req broadcastReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	res, err := h.dispatch.Rebroadcast(c.Request.Context(), types.ID(c.Param("id")), req.RadiusKm)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// DispatchStatus shows which drivers were offered the order and across how
// many broadcast rounds.
func (h *DispatcherHandler) DispatchStatus(c *gin.Context) {
	st, err := h.dispatch.Status(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *DispatcherHandler) CancelOrder(c *gin.Context) {
	r, err := h.rides.CancelByDispatcher(c.Request.Context(), types.ID(c.Param("id")), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

type depositReq struct {
	DriverID string  `json:"driver_id"`
	Amount   float64 `json:"amount"`
}

func (h *DispatcherHandler) Deposit(c *gin.Context) {
	var req depositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	balance, err := h.drivers.Deposit(c.Request.Context(), types.ID(req.DriverID), req.Amount)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver_id": req.DriverID, "balance": balance})
}

func (h *DispatcherHandler) DriverLocations(c *gin.Context) {
	locations, err := h.drivers.Locations(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": locations, "count": len(locations)})
}

func (h *DispatcherHandler) BlockDriver(c *gin.Context) {
	if err := h.drivers.Block(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"blocked": true})
}

func (h *DispatcherHandler) UnblockDriver(c *gin.Context) {
	if err := h.drivers.Unblock(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"blocked": false})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"royaltaxi/internal/http/middleware"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/notification"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/types"
)

// DriverHandler serves the driver app: duty status, the accept/start/complete
// flow, stats, and the notification feed.
type DriverHandler struct {
	drivers       *driver.Service
	rides         *ride.Service
	notifications *notification.Store
}

func NewDriverHandler(drivers *driver.Service, rides *ride.Service, notifications *notification.Store) *DriverHandler {
	return &DriverHandler{drivers: drivers, rides: rides, notifications: notifications}
}

type dutyReq struct {
	OnDuty bool     `json:"on_duty"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	City   string   `json:"city"`
}

func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req dutyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var loc *types.Point
	if req.Lat != nil && req.Lng != nil {
		loc = &types.Point{Lat: *req.Lat, Lng: *req.Lng}
	}
	rec, err := h.drivers.SetDuty(c.Request.Context(), middleware.UserID(c), req.OnDuty, loc, req.City)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rec)
}

func (h *DriverHandler) Accept(c *gin.Context) {
	r, err := h.rides.Accept(c.Request.Context(), types.ID(c.Param("id")), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *DriverHandler) Start(c *gin.Context) {
	r, err := h.rides.Start(c.Request.Context(), types.ID(c.Param("id")), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

type completeReq struct {
	Dropoff *locationReq `json:"dropoff"`
	Fare    *float64     `json:"fare"`
}

func (h *DriverHandler) Complete(c *gin.Context) {
	var req completeReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	cmd := ride.CompleteCommand{
		RideID:       types.ID(c.Param("id")),
		DriverID:     middleware.UserID(c),
		FareOverride: req.Fare,
	}
	if req.Dropoff != nil {
		loc := req.Dropoff.toLocation()
		cmd.Dropoff = &loc
	}
	r, settlement, err := h.rides.Complete(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ride": r, "settlement": settlement})
}

func (h *DriverHandler) Stats(c *gin.Context) {
	stats, err := h.drivers.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stats)
}

func (h *DriverHandler) Notifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notifications.ListByUser(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": list})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"royaltaxi/internal/http/middleware"
	"royaltaxi/internal/modules/ride"
	"royaltaxi/internal/types"
)

// RiderHandler serves the customer app. The token subject is the customer ID;
// every lookup is scoped to it.
type RiderHandler struct {
	rides *ride.Service
}

func NewRiderHandler(rides *ride.Service) *RiderHandler {
	return &RiderHandler{rides: rides}
}

func (h *RiderHandler) Current(c *gin.Context) {
	rides, err := h.rides.ActiveForCustomer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": rides})
}

func (h *RiderHandler) Get(c *gin.Context) {
	r, err := h.rides.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if r.CustomerID != middleware.UserID(c) {
		writeError(c, http.StatusNotFound, ride.ErrNotFound.Error())
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RiderHandler) Status(c *gin.Context) {
	snap, err := h.rides.StatusSnapshot(c.Request.Context(), types.ID(c.Param("id")), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

func (h *RiderHandler) Cancel(c *gin.Context) {
	r, err := h.rides.CancelByRider(c.Request.Context(), types.ID(c.Param("id")), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RiderHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	rides, err := h.rides.HistoryForCustomer(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": rides, "limit": limit, "offset": offset})
}

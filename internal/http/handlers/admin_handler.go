package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/types"
)

// AdminHandler manages runtime configuration: commission rate, vehicle rates,
// and driver approval.
type AdminHandler struct {
	pricing *pricing.Service
	drivers *driver.Service
}

func NewAdminHandler(pricingSvc *pricing.Service, drivers *driver.Service) *AdminHandler {
	return &AdminHandler{pricing: pricingSvc, drivers: drivers}
}

func (h *AdminHandler) GetCommissionRate(c *gin.Context) {
	rate, err := h.pricing.CommissionRate(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"commission_rate": rate})
}

type commissionRateReq struct {
	Rate float64 `json:"rate"`
}

func (h *AdminHandler) SetCommissionRate(c *gin.Context) {
	var req commissionRateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.pricing.SetCommissionRate(c.Request.Context(), req.Rate); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"commission_rate": req.Rate})
}

func (h *AdminHandler) GetVehicleRates(c *gin.Context) {
	rates, err := h.pricing.Rates(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rates": rates})
}

func (h *AdminHandler) SetVehicleRate(c *gin.Context) {
	var rate pricing.Rate
	if err := c.ShouldBindJSON(&rate); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.pricing.SetRate(c.Request.Context(), rate); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rate)
}

func (h *AdminHandler) ApproveDriver(c *gin.Context) {
	if err := h.drivers.Approve(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"approved": true})
}

func (h *AdminHandler) UnapproveDriver(c *gin.Context) {
	if err := h.drivers.Unapprove(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"approved": false})
}

// Package handlers is the thin HTTP layer: decode, call a service, map the
// error. No business rules live here.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"royaltaxi/internal/modules/customer"
	"royaltaxi/internal/modules/dispatch"
	"royaltaxi/internal/modules/driver"
	"royaltaxi/internal/modules/pricing"
	"royaltaxi/internal/modules/ride"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinel errors to HTTP statuses. Eligibility
// denials carry their machine code so driver apps can react per reason.
func writeServiceError(c *gin.Context, err error) {
	var denied *ride.DeniedError
	if errors.As(err, &denied) {
		writeJSON(c, http.StatusForbidden, errorResponse{
			Error: denied.Reason.Message(),
			Code:  string(denied.Reason),
		})
		return
	}

	switch {
	case errors.Is(err, ride.ErrNotFound),
		errors.Is(err, driver.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrBadRequest),
		errors.Is(err, driver.ErrInvalidAmount),
		errors.Is(err, driver.ErrBadLocation),
		errors.Is(err, pricing.ErrUnknownClass),
		errors.Is(err, pricing.ErrInvalidRate):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrConflict),
		errors.Is(err, ride.ErrInvalidState),
		errors.Is(err, dispatch.ErrNotDispatchable):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ride.ErrNotAssigned),
		errors.Is(err, ride.ErrNotOwner):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

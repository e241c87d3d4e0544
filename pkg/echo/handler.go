// Package echo adapts the transfer service to the echo framework.
package echo

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	paysim "github.com/corebank/paysim"
	transferhttp "github.com/corebank/paysim/http"
)

// RegisterRoutes mounts POST /transfer and GET /healthz on the echo
// instance.
func RegisterRoutes(e *echo.Echo, svc *transferhttp.Service) {
	e.POST("/transfer", TransferHandler(svc))
	e.GET("/healthz", HealthHandler(svc))
}

// TransferHandler returns the echo handler for POST /transfer.
func TransferHandler(svc *transferhttp.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, transferhttp.ErrorResponse{
				Status:     paysim.StatusFailed,
				ReasonCode: paysim.ErrCodeValidation,
				Message:    "request body unreadable",
			})
		}
		status, resp, requestID := svc.Transfer(c.Request().Context(), body,
			c.Request().Host,
			c.Request().Header.Get(transferhttp.HeaderIdempotencyKey),
			c.Request().Header.Get(transferhttp.HeaderRequestID))
		c.Response().Header().Set(transferhttp.HeaderRequestID, requestID)
		return c.JSON(status, resp)
	}
}

// HealthHandler returns the echo handler for GET /healthz.
func HealthHandler(svc *transferhttp.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, resp := svc.Health()
		return c.JSON(status, resp)
	}
}

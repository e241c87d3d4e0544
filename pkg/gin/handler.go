// Package gin adapts the transfer service to the gin framework.
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paysim "github.com/corebank/paysim"
	transferhttp "github.com/corebank/paysim/http"
)

// RegisterRoutes mounts POST /transfer and GET /healthz on the engine.
func RegisterRoutes(r *gin.Engine, svc *transferhttp.Service) {
	r.POST("/transfer", TransferHandler(svc))
	r.GET("/healthz", HealthHandler(svc))
}

// TransferHandler returns the gin handler for POST /transfer.
func TransferHandler(svc *transferhttp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, transferhttp.ErrorResponse{
				Status:     paysim.StatusFailed,
				ReasonCode: paysim.ErrCodeValidation,
				Message:    "request body unreadable",
			})
			return
		}
		status, resp, requestID := svc.Transfer(c.Request.Context(), body,
			c.Request.Host,
			c.GetHeader(transferhttp.HeaderIdempotencyKey),
			c.GetHeader(transferhttp.HeaderRequestID))
		c.Header(transferhttp.HeaderRequestID, requestID)
		c.JSON(status, resp)
	}
}

// HealthHandler returns the gin handler for GET /healthz.
func HealthHandler(svc *transferhttp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, resp := svc.Health()
		c.JSON(status, resp)
	}
}

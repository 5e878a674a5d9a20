package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetPaymentStatus backs the page the gateway redirects to after checkout.
func (s *Server) GetPaymentStatus(c *gin.Context) {
	merchantTransID := strings.TrimSpace(c.Param("merchant_trans_id"))
	if merchantTransID == "" {
		AbortWithError(c, newValidationError("merchant_trans_id", "merchant_trans_id_required", "merchant_trans_id is required"))
		return
	}

	status, err := s.clickSvc.Status(c.Request.Context(), merchantTransID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

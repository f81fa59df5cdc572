package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
)

func (s *Server) GetStats(c *gin.Context) {
	stats, err := s.bookingSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, stats)
}

func (s *Server) ListBookingCommunications(c *gin.Context) {
	comms, err := s.bookingSvc.Communications(c.Request.Context(), bookingRefParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, comms)
}

// AdminCancelBooking cancels on the customer's behalf. The refund policy
// still applies.
func (s *Server) AdminCancelBooking(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		AbortWithError(c, newValidationError("reason", "required", "reason is required"))
		return
	}

	user, _ := adminFromContext(c)
	resp, err := s.checkoutSvc.CancelBooking(c.Request.Context(), checkoutdomain.CancelBookingRequest{
		BookingID: bookingRefParam(c),
		Reason:    "admin(" + user.Username + "): " + reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

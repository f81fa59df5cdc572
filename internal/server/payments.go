package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

func (s *Server) CreateOrder(c *gin.Context) {
	var req checkoutdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(headerIdempotencyKey))

	resp, err := s.checkoutSvc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("booking_ref", resp.BookingID)

	respond(c, http.StatusOK, resp)
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req checkoutdomain.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set("booking_ref", strings.TrimSpace(req.BookingID))

	resp, err := s.checkoutSvc.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetBooking(c *gin.Context) {
	ref := bookingRefParam(c)
	details, err := s.checkoutSvc.GetBooking(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, details)
}

func (s *Server) GetBookingReceipt(c *gin.Context) {
	ref := bookingRefParam(c)
	receipt, err := s.checkoutSvc.Receipt(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+strings.ToUpper(ref)+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", receipt)
}

func (s *Server) ListUserBookings(c *gin.Context) {
	bookings, err := s.checkoutSvc.ListBookings(c.Request.Context(), strings.TrimSpace(c.Param("email")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, bookings)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelBooking(c *gin.Context) {
	var req cancelBookingRequest
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.checkoutSvc.CancelBooking(c.Request.Context(), checkoutdomain.CancelBookingRequest{
		BookingID: bookingRefParam(c),
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetPayment(c *gin.Context) {
	payment, err := s.checkoutSvc.GetPayment(c.Request.Context(), strings.TrimSpace(c.Param("paymentId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, payment)
}

func bookingRefParam(c *gin.Context) string {
	ref := strings.TrimSpace(c.Param("bookingId"))
	c.Set("booking_ref", ref)
	return ref
}

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/trailbook/internal/audit/domain"
	authdomain "github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/authorization"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/ratelimit"
	"github.com/smallbiznis/trailbook/internal/validation"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Quote   *quotePayload     `json:"quote,omitempty"`
}

// quotePayload is the server price breakdown in rupees, attached to
// amount_mismatch so clients can show the total they will be charged.
type quotePayload struct {
	Participants  int     `json:"participants"`
	Subtotal      float64 `json:"subtotal"`
	BookingFee    float64 `json:"booking_fee"`
	ProcessingFee float64 `json:"processing_fee"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", `Basic realm="trailbook-admin"`)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *validation.Error
	if errors.As(err, &fieldErr) && fieldErr != nil {
		out := make([]ValidationError, 0, len(fieldErr.Fields))
		for _, f := range fieldErr.Fields {
			out = append(out, ValidationError{Field: f.Field, Code: f.Code, Message: f.Message})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  out,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, bookingdomain.ErrCancellationNotAllowed):
		return http.StatusBadRequest, errorPayload{
			Type:    "policy_violation",
			Message: "cancellation is not allowed within 24 hours of the event",
		}
	case errors.Is(err, paymentdomain.ErrSignatureMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "signature_mismatch",
			Message: "payment signature could not be verified",
		}
	case errors.Is(err, checkoutdomain.ErrAmountMismatch):
		return http.StatusBadRequest, amountMismatchPayload(err)
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, checkoutdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, paymentdomain.ErrGatewayNotConfigured):
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "payment gateway is not configured",
		}
	case errors.Is(err, paymentdomain.ErrGatewayRequest):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: "payment gateway request failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client saw.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if payload.Type == "internal_error" || payload.Type == "conflict" {
		code = err.Error()
		if idx := strings.Index(code, ":"); idx > 0 {
			code = code[:idx]
		}
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isEventValidationError(err),
		isBookingValidationError(err),
		errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isEventValidationError(err error) bool {
	switch {
	case errors.Is(err, eventdomain.ErrInvalidTitle),
		errors.Is(err, eventdomain.ErrInvalidPrice),
		errors.Is(err, eventdomain.ErrInvalidCapacity),
		errors.Is(err, eventdomain.ErrInvalidDate),
		errors.Is(err, eventdomain.ErrInvalidCategory),
		errors.Is(err, eventdomain.ErrInvalidLevel):
		return true
	default:
		return false
	}
}

func isBookingValidationError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrInvalidRef),
		errors.Is(err, bookingdomain.ErrInvalidEmail),
		errors.Is(err, bookingdomain.ErrInvalidParticipants):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, checkoutdomain.ErrSoldOut),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, eventdomain.ErrNotBookable),
		errors.Is(err, checkoutdomain.ErrPaymentAlreadyUsed),
		errors.Is(err, checkoutdomain.ErrPaymentMissing),
		errors.Is(err, checkoutdomain.ErrReceiptUnavailable),
		errors.Is(err, ratelimit.ErrLockBusy):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, checkoutdomain.ErrSoldOut):
		return "not enough seats left for this event"
	case errors.Is(err, eventdomain.ErrNotBookable):
		return "event is no longer open for booking"
	case errors.Is(err, checkoutdomain.ErrPaymentAlreadyUsed):
		return "payment has already been recorded"
	case errors.Is(err, checkoutdomain.ErrReceiptUnavailable),
		errors.Is(err, checkoutdomain.ErrPaymentMissing):
		return "booking has no completed payment"
	case errors.Is(err, ratelimit.ErrLockBusy):
		return "booking is being updated, retry shortly"
	default:
		return "booking is not in a state that allows this action"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_time_range":
		return "from"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func amountMismatchPayload(err error) errorPayload {
	payload := errorPayload{
		Type:    "amount_mismatch",
		Message: "amount does not match the current price",
	}
	var mismatch *checkoutdomain.AmountMismatchError
	if !errors.As(err, &mismatch) {
		return payload
	}
	q := mismatch.Quote
	rupees := func(paise int64) float64 { return float64(paise) / bookingdomain.PaisePerRupee }
	payload.Message = fmt.Sprintf("amount does not match the server total of %.2f %s", rupees(q.TotalAmount), q.Currency)
	payload.Quote = &quotePayload{
		Participants:  q.Participants,
		Subtotal:      rupees(q.Subtotal),
		BookingFee:    rupees(q.BookingFee),
		ProcessingFee: rupees(q.ProcessingFee),
		Tax:           rupees(q.TaxAmount),
		Total:         rupees(q.TotalAmount),
		Currency:      q.Currency,
	}
	return payload
}

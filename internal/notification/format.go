package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
)

const dateLayout = "02 Jan 2006"

// FormatINR renders paise as "INR 1,287.25".
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	rupees := strconv.FormatInt(paise/bookingdomain.PaisePerRupee, 10)
	var grouped strings.Builder
	for i, r := range rupees {
		if i > 0 && (len(rupees)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%sINR %s.%02d", sign, grouped.String(), paise%bookingdomain.PaisePerRupee)
}

// ReceiptData maps a booking and its payment onto the printable receipt.
func ReceiptData(b bookingdomain.Booking, p *paymentdomain.Payment) pdf.ReceiptData {
	data := pdf.ReceiptData{
		BookingRef:    b.BookingRef,
		Status:        strings.ToUpper(string(b.Status)),
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		EventTitle:    b.EventTitle,
		EventDate:     b.EventDate.Format(dateLayout),
		EventLocation: b.EventLocation,
		EventDuration: b.EventDuration,
		Participants:  b.Participants,
		Total:         FormatINR(b.TotalAmount),
	}

	data.Lines = append(data.Lines, pdf.ReceiptLine{
		Label:  fmt.Sprintf("Base fare (%d x %s)", b.Participants, FormatINR(b.EventPrice*bookingdomain.PaisePerRupee)),
		Amount: FormatINR(b.BaseAmount),
	})
	if b.DiscountAmount > 0 {
		data.Lines = append(data.Lines, pdf.ReceiptLine{Label: "Group discount", Amount: FormatINR(-b.DiscountAmount)})
	}
	data.Lines = append(data.Lines,
		pdf.ReceiptLine{Label: "Booking fee", Amount: FormatINR(b.BookingFee)},
		pdf.ReceiptLine{Label: "Payment processing fee", Amount: FormatINR(b.ProcessingFee)},
		pdf.ReceiptLine{Label: "GST on processing fee", Amount: FormatINR(b.TaxAmount)},
	)

	if p != nil {
		data.PaymentID = p.GatewayPaymentID
		data.PaidAt = p.PaidAt.Format(time.RFC1123)
	} else if b.PaidAt != nil {
		data.PaymentID = b.GatewayPaymentID
		data.PaidAt = b.PaidAt.Format(time.RFC1123)
	}
	if b.RefundStatus != bookingdomain.RefundStatusNone {
		data.RefundAmount = FormatINR(b.RefundAmount)
		data.RefundStatus = string(b.RefundStatus)
	}
	return data
}

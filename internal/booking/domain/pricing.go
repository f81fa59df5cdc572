package domain

const PaisePerRupee = 100

// Rates are the pricing inputs in basis points.
type Rates struct {
	GroupDiscountBps       int64
	GroupDiscountThreshold int
	BookingFeeBps          int64
	ProcessingFeeBps       int64
	TaxBps                 int64
}

func DefaultRates() Rates {
	return Rates{
		GroupDiscountBps:       1000,
		GroupDiscountThreshold: 5,
		BookingFeeBps:          500,
		ProcessingFeeBps:       200,
		TaxBps:                 1800,
	}
}

// Quote is the server-side price breakdown for a booking, in paise.
type Quote struct {
	PricePerPerson int64  `json:"price_per_person"`
	Participants   int    `json:"participants"`
	BaseAmount     int64  `json:"base_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	Subtotal       int64  `json:"subtotal"`
	BookingFee     int64  `json:"booking_fee"`
	ProcessingFee  int64  `json:"processing_fee"`
	TaxAmount      int64  `json:"tax_amount"`
	TotalAmount    int64  `json:"total_amount"`
	Currency       string `json:"currency"`
}

// NewQuote prices participants seats at priceRupees each. The booking fee is
// charged on the base amount while processing fee applies to the discounted
// subtotal and tax applies to the processing fee only.
func NewQuote(priceRupees int64, participants int, rates Rates) Quote {
	base := priceRupees * PaisePerRupee * int64(participants)

	var discount int64
	if rates.GroupDiscountThreshold > 0 && participants >= rates.GroupDiscountThreshold {
		discount = percentOf(base, rates.GroupDiscountBps)
	}
	subtotal := base - discount
	bookingFee := percentOf(base, rates.BookingFeeBps)
	processingFee := percentOf(subtotal, rates.ProcessingFeeBps)
	tax := percentOf(processingFee, rates.TaxBps)

	return Quote{
		PricePerPerson: priceRupees * PaisePerRupee,
		Participants:   participants,
		BaseAmount:     base,
		DiscountAmount: discount,
		Subtotal:       subtotal,
		BookingFee:     bookingFee,
		ProcessingFee:  processingFee,
		TaxAmount:      tax,
		TotalAmount:    subtotal + bookingFee + processingFee + tax,
		Currency:       DefaultCurrency,
	}
}

// Apply copies the breakdown onto a booking.
func (q Quote) Apply(b *Booking) {
	b.BaseAmount = q.BaseAmount
	b.DiscountAmount = q.DiscountAmount
	b.BookingFee = q.BookingFee
	b.ProcessingFee = q.ProcessingFee
	b.TaxAmount = q.TaxAmount
	b.TotalAmount = q.TotalAmount
	b.Currency = q.Currency
}

// WithinTolerance reports whether a client-quoted total in rupees matches the
// quote to within toleranceRupees.
func (q Quote) WithinTolerance(clientRupees float64, toleranceRupees int64) bool {
	if clientRupees < 0 {
		return false
	}
	clientPaise := int64(clientRupees*PaisePerRupee + 0.5)
	diff := clientPaise - q.TotalAmount
	if diff < 0 {
		diff = -diff
	}
	return diff <= toleranceRupees*PaisePerRupee
}

// percentOf applies bps to amount with half-up rounding to the nearest paisa.
func percentOf(amount, bps int64) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*bps + 5000) / 10000
}

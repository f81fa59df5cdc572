package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/fx"
)

var ErrMissingReference = errors.New("receipt_missing_booking_ref")

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// ReceiptData carries preformatted values; amounts are display strings.
type ReceiptData struct {
	BookingRef    string
	Status        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	EventTitle    string
	EventDate     string
	EventLocation string
	EventDuration string
	Participants  int

	Lines []ReceiptLine
	Total string

	PaymentID string
	PaidAt    string

	RefundAmount string
	RefundStatus string
}

type ReceiptLine struct {
	Label  string
	Amount string
}

type PDFProvider struct {
	brand string
}

func New() Provider {
	return &PDFProvider{brand: "Trailbook"}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if receipt.BookingRef == "" {
		return nil, ErrMissingReference
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, p.brand+" booking receipt", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, receipt.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   3,
		}),
	)

	m.AddRow(40,
		col.New(8).Add(
			text.New("Booking reference: "+receipt.BookingRef, props.Text{Style: fontstyle.Bold}),
			text.New(receipt.CustomerName, props.Text{Top: 6}),
			text.New(receipt.CustomerEmail, props.Text{Top: 11}),
			text.New(receipt.CustomerPhone, props.Text{Top: 16}),
			text.New("Payment: "+receipt.PaymentID, props.Text{Top: 24, Size: 9}),
			text.New("Paid at: "+receipt.PaidAt, props.Text{Top: 29, Size: 9}),
		),
		code.NewQrCol(4, receipt.BookingRef, props.Rect{
			Center:  true,
			Percent: 90,
		}),
	)

	m.AddRow(10,
		text.NewCol(12, "Trip details", props.Text{Style: fontstyle.Bold, Size: 11, Top: 3}),
	)
	m.AddRow(25,
		col.New(12).Add(
			text.New(receipt.EventTitle, props.Text{Style: fontstyle.Bold}),
			text.New("Date: "+receipt.EventDate, props.Text{Top: 5}),
			text.New("Location: "+receipt.EventLocation, props.Text{Top: 10}),
			text.New("Duration: "+receipt.EventDuration, props.Text{Top: 15}),
			text.New(fmt.Sprintf("Participants: %d", receipt.Participants), props.Text{Top: 20}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range receipt.Lines {
		m.AddRow(8,
			text.NewCol(8, line.Label, props.Text{Size: 9}),
			text.NewCol(4, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(4, receipt.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if receipt.RefundAmount != "" {
		m.AddRow(10,
			col.New(6),
			text.NewCol(2, "Refund", props.Text{Size: 9}),
			text.NewCol(4, receipt.RefundAmount+" ("+receipt.RefundStatus+")", props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

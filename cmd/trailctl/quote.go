package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	bookingservice "github.com/smallbiznis/trailbook/internal/booking/service"
	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func quoteCmd() *cobra.Command {
	var (
		price        int64
		participants int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the price breakdown for a booking",
		Long: `Print the server-side price breakdown using the active pricing policy.

Examples:
  trailctl quote --price 1199
  trailctl quote --price 1199 --participants 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if price <= 0 {
				return fmt.Errorf("--price must be positive")
			}
			holder, err := config.NewPricingConfigHolder(zap.NewNop())
			if err != nil {
				return err
			}
			pricing := holder.Get()
			if participants < 1 || participants > pricing.MaxParticipants {
				return fmt.Errorf("participants must be between 1 and %d", pricing.MaxParticipants)
			}

			quote := bookingdomain.NewQuote(price, participants, bookingservice.RatesFromConfig(pricing))
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(quote)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			rows := []struct {
				label  string
				amount int64
			}{
				{"base", quote.BaseAmount},
				{"discount", -quote.DiscountAmount},
				{"subtotal", quote.Subtotal},
				{"booking fee", quote.BookingFee},
				{"processing fee", quote.ProcessingFee},
				{"tax", quote.TaxAmount},
				{"total", quote.TotalAmount},
			}
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s %s\t\n", row.label, formatRupees(row.amount), quote.Currency)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&price, "price", 0, "price per person in rupees")
	cmd.Flags().IntVarP(&participants, "participants", "p", 1, "number of participants")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the quote as JSON (amounts in paise)")

	return cmd
}

func formatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/bookingdomain.PaisePerRupee, paise%bookingdomain.PaisePerRupee)
}

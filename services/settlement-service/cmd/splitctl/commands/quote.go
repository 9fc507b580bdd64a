package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/service"
	"github.com/isectech/bulkshare/services/settlement-service/usecase"
)

type quoteOptions struct {
	invoicePath string
	released    []int
	coupon      string
	taxes       string
	format      string
}

type quoteOutput struct {
	InitialGrandTotal string                   `json:"initial_grand_total"`
	Kept              service.Totals           `json:"kept"`
	Released          service.Totals           `json:"released"`
	Settlement        *entity.SettlementRecord `json:"settlement"`
}

func quoteCmd() *cobra.Command {
	opts := &quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print kept and released totals for an invoice",
		Example: `  splitctl quote --invoice order.json --release 1,2
  cat order.json | splitctl quote --invoice - --release 0 --coupon 5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession(cmd, opts)
			if err != nil {
				return err
			}
			return writeQuote(cmd.OutOrStdout(), session, opts.format)
		},
	}

	cmd.Flags().StringVarP(&opts.invoicePath, "invoice", "i", "", "invoice JSON file, - for stdin")
	cmd.Flags().IntSliceVarP(&opts.released, "release", "r", nil, "item indexes released to the counter-party")
	cmd.Flags().StringVar(&opts.coupon, "coupon", "", "override coupon savings")
	cmd.Flags().StringVar(&opts.taxes, "taxes", "", "override taxes and fees")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("invoice")

	return cmd
}

func loadSession(cmd *cobra.Command, opts *quoteOptions) (*service.InvoiceSession, error) {
	var (
		data []byte
		err  error
	)
	if opts.invoicePath == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(opts.invoicePath)
	}
	if err != nil {
		return nil, fmt.Errorf("read invoice: %w", err)
	}

	raw, err := entity.ParseRawInvoice(data)
	if err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}

	invoice, err := service.NormalizeInvoice(raw)
	if err != nil {
		return nil, err
	}

	session := service.NewInvoiceSession(invoice)
	if err := session.Release(opts.released...); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("coupon") {
		session.SetCouponSavings(opts.coupon)
	}
	if cmd.Flags().Changed("taxes") {
		session.SetTaxesAndFees(opts.taxes)
	}
	return session, nil
}

func writeQuote(w io.Writer, session *service.InvoiceSession, format string) error {
	totals := session.Totals()
	record := usecase.BuildRecord(usecase.SubmitInputFromSession("", session))

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(quoteOutput{
			InitialGrandTotal: session.InitialGrandTotal().String(),
			Kept:              totals.Kept,
			Released:          totals.Released,
			Settlement:        record,
		})
	case "text":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\tSUB TOTAL\tTAXES AND FEES\tGRAND TOTAL\n")
	fmt.Fprintf(tw, "kept\t%s\t%s\t%s\n", cents(totals.Kept.SubTotal), cents(totals.Kept.TaxesAndFees), cents(totals.Kept.GrandTotal))
	fmt.Fprintf(tw, "released\t%s\t%s\t%s\n", cents(totals.Released.SubTotal), cents(totals.Released.TaxesAndFees), cents(totals.Released.GrandTotal))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nCounter-party items: %d\n", len(record.CounterPartyItems))
	for _, item := range record.CounterPartyItems {
		fmt.Fprintf(w, "  %s  %s\n", item.Name, cents(item.Price))
	}
	fmt.Fprintf(w, "Counter-party amount due: %s\n", cents(record.CounterPartyAmountDue))
	fmt.Fprintf(w, "Full order grand total: %s\n", cents(record.FullOrderGrandTotal))
	return nil
}

func cents(amount decimal.Decimal) string {
	return entity.RoundCents(amount).StringFixed(2)
}

package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"LeoneAI/internal/di"
	"LeoneAI/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var portfolioCurrency string

// portfolioCmd prints the current portfolio snapshot
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show portfolio holdings",
	RunE:  runPortfolio,
}

func init() {
	portfolioCmd.Flags().StringVar(&portfolioCurrency, "currency", "", "display currency (SLL or USD); defaults to the saved setting")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	return withConsole(cmd.Context(), func(ctx context.Context, c *di.Console) error {
		settings, err := c.Settings.Load(ctx)
		if err != nil {
			return err
		}
		cur := settings.Currency
		if portfolioCurrency != "" {
			cur = models.Currency(strings.ToUpper(portfolioCurrency))
		}
		if cur != models.CurrencySLL && cur != models.CurrencyUSD {
			return fmt.Errorf("unsupported currency %q", cur)
		}

		snap, err := c.Backend.Portfolio(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		pick := func(usd, sll decimal.Decimal) string {
			if cur == models.CurrencyUSD {
				return models.FormatMoney(usd, cur)
			}
			return models.FormatMoney(sll, cur)
		}
		fmt.Fprintf(out, "total %s  cash %s  profit %s  today %+.2f%%\n",
			pick(snap.TotalValueUSD, snap.TotalValueSLL),
			pick(snap.CashBalanceUSD, snap.CashBalanceSLL),
			pick(snap.TotalProfitUSD, snap.TotalProfitSLL),
			snap.DailyChangePercent,
		)

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tVALUE\tP&L\tP&L %")
		for _, h := range snap.Holdings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+.2f\n",
				h.Symbol,
				h.Quantity.String(),
				pick(h.CurrentValueUSD, h.CurrentValueSLL),
				pick(h.PnLUSD, h.PnLSLL),
				h.PnLPercent,
			)
		}
		return w.Flush()
	})
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"lending/internal/lending"

	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:     "market",
	Aliases: []string{"markets"},
	Short:   "list markets and their rates",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		engine := provideEngine(ctx)

		markets, err := engine.marketStore.All(ctx)
		if err != nil {
			panic(err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tCASH\tBORROWS\tRESERVES\tUTILIZATION\tBORROW APR\tSUPPLY APR")
		for _, m := range markets {
			util := lending.UtilizationRate(m.TotalCash, m.TotalBorrows, m.Reserves)
			borrowRate := lending.BorrowRatePerPeriod(m.TotalCash, m.TotalBorrows, m.Reserves, m.BaseRate, m.Multiplier)
			supplyRate := lending.SupplyRatePerPeriod(m.TotalCash, m.TotalBorrows, m.Reserves, m.BaseRate, m.Multiplier, m.ReserveFactor)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				m.Symbol,
				m.TotalCash.Truncate(8),
				m.TotalBorrows.Truncate(8),
				m.Reserves.Truncate(8),
				util.Truncate(4),
				lending.AnnualRate(borrowRate).Truncate(4),
				lending.AnnualRate(supplyRate).Truncate(4),
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(marketCmd)
}

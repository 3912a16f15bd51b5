package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"acc"},
	Short:   "show a lending account",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		engine := provideEngine(ctx)

		id, e := cmd.Flags().GetString("id")
		if e != nil || id == "" {
			panic("invalid account id")
		}

		account, err := engine.controller.Account(ctx, id)
		if err != nil {
			panic(err)
		}

		cmd.Printf("account:    %s\n", account.Account)
		cmd.Printf("collateral: %s\n", account.CollateralValue.Truncate(8))
		cmd.Printf("borrowed:   %s\n", account.BorrowedValue.Truncate(8))
		cmd.Printf("health:     %s\n", account.HealthFactor.Truncate(4))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ASSET\tSUPPLY SHARES\tBORROW PRINCIPAL")
		for _, p := range account.Positions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.AssetID, p.SupplyShares.Truncate(8), p.BorrowPrincipal.Truncate(8))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)

	accountCmd.Flags().String("id", "", "account id")
}

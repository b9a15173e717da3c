package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"derivsim/internal/models"
	"derivsim/pkg/utils"
)

func addChainCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newExpiriesCmd(app))
	rootCmd.AddCommand(newUnderlyingsCmd(app))
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Show the options chain for an underlying",
		Example: `  derivsim chain NIFTY
  derivsim chain BANKNIFTY --expiry 2024-06-27
  derivsim chain NIFTY --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			expiry, err := parseExpiryFlag(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			chain, err := app.Chains.OptionsChain(underlying, expiry)
			if err != nil {
				output.Error("Failed to build chain: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(chain)
			}

			output.Bold("%s options chain  spot %s  expiry %s",
				chain.Underlying, utils.FormatPrice(chain.SpotPrice), chain.Expiry.Format("02 Jan 2006"))
			output.Println()

			table := NewTable(output, "Strike", "Call Prem", "Call Delta", "Put Prem", "Put Delta")
			// Calls and puts are generated from the same ladder so they
			// line up index for index.
			for i, call := range chain.Calls {
				put := chain.Puts[i]
				strike := call.Contract.Strike
				strikeCell := fmt.Sprintf("%.2f", strike)
				if isNearest(strike, chain.SpotPrice, chain.Calls) {
					strikeCell = output.BoldText(strikeCell + " *")
				}
				table.AddRow(
					strikeCell,
					fmt.Sprintf("%.2f", call.Contract.Premium),
					fmt.Sprintf("%.3f", call.Greeks.Delta),
					fmt.Sprintf("%.2f", put.Contract.Premium),
					fmt.Sprintf("%.3f", put.Greeks.Delta),
				)
			}
			table.Render()
			output.Dim("* at-the-money strike")
			return nil
		},
	}

	cmd.Flags().String("expiry", "", "expiry date (YYYY-MM-DD, default nearest)")
	return cmd
}

// isNearest reports whether strike is the chain strike closest to spot.
func isNearest(strike, spot float64, calls []models.ChainEntry) bool {
	best := strike
	for _, e := range calls {
		if abs(e.Contract.Strike-spot) < abs(best-spot) {
			best = e.Contract.Strike
		}
	}
	return best == strike
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func newExpiriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "expiries <symbol>",
		Short: "List upcoming expiry dates for an underlying",
		Example: `  derivsim expiries NIFTY
  derivsim expiries RELIANCE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			expiries, err := app.Catalog.ExpiryDates(underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if output.IsJSON() {
				dates := make([]string, 0, len(expiries))
				for _, e := range expiries {
					dates = append(dates, e.Format("2006-01-02"))
				}
				return output.JSON(map[string]interface{}{
					"underlying": underlying,
					"expiries":   dates,
				})
			}

			output.Bold("%s expiries", underlying)
			for _, e := range expiries {
				output.Printf("  %s  (%s)\n", e.Format("02 Jan 2006"), e.Weekday())
			}
			return nil
		},
	}
}

func newUnderlyingsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "underlyings",
		Short: "List supported underlyings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			names := app.Catalog.Underlyings()
			sort.Strings(names)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"underlyings": names})
			}

			table := NewTable(output, "Symbol", "Lot", "Strike Interval", "Margin %", "Index")
			for _, name := range names {
				spec, err := app.Catalog.Spec(name)
				if err != nil {
					continue
				}
				index := "no"
				if spec.IsIndex {
					index = "yes"
				}
				table.AddRow(name,
					fmt.Sprintf("%d", spec.LotSize),
					fmt.Sprintf("%.0f", spec.StrikeInterval),
					fmt.Sprintf("%.0f", spec.MarginPercent),
					index)
			}
			table.Render()
			return nil
		},
	}
}

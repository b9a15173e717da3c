package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"derivsim/internal/models"
	"derivsim/internal/strategy"
	"derivsim/pkg/utils"
)

func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	strategyCmd := &cobra.Command{
		Use:   "strategy",
		Short: "Build and analyze multi-leg F&O strategies",
	}

	strategyCmd.AddCommand(newBullCallSpreadCmd(app))
	strategyCmd.AddCommand(newBearPutSpreadCmd(app))
	strategyCmd.AddCommand(newStraddleCmd(app))
	strategyCmd.AddCommand(newIronCondorCmd(app))
	strategyCmd.AddCommand(newCoveredCallCmd(app))
	strategyCmd.AddCommand(newProtectivePutCmd(app))
	strategyCmd.AddCommand(newFuturesCmd(app))

	rootCmd.AddCommand(strategyCmd)
}

// strategyContext resolves the shared spot/expiry inputs of every
// strategy sub-command.
func strategyContext(cmd *cobra.Command, app *App, underlying string) (float64, time.Time, error) {
	spot, _ := cmd.Flags().GetFloat64("spot")
	if spot == 0 {
		spot = app.Provider.SpotPrice(underlying)
	}
	expiry, err := parseExpiryFlag(cmd, app, underlying)
	if err != nil {
		return 0, time.Time{}, err
	}
	return spot, expiry, nil
}

func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("spot", 0, "spot price override (default simulated)")
	cmd.Flags().String("expiry", "", "expiry date (YYYY-MM-DD, default nearest)")
	cmd.Flags().Int("quantity", 1, "number of lots")
	cmd.Flags().Bool("payoff", false, "print the payoff-at-expiry curve")
	cmd.Flags().Float64("pnl-at", 0, "mark the strategy to this spot and show P&L")
}

// renderStrategy prints the built strategy, and optionally its payoff
// curve or mark-to-market valuation, honoring the shared flags.
func renderStrategy(cmd *cobra.Command, app *App, s *strategy.FOStrategy, spot float64) error {
	output := NewOutput(cmd)

	showPayoff, _ := cmd.Flags().GetBool("payoff")
	pnlAt, _ := cmd.Flags().GetFloat64("pnl-at")

	if output.IsJSON() {
		payload := map[string]interface{}{"strategy": s}
		if showPayoff {
			payload["payoff"] = app.Builder.PayoffAtExpiry(s, 0, 0)
		}
		if pnlAt > 0 {
			payload["valuation"] = app.Builder.CalculatePnL(s, pnlAt)
		}
		return output.JSON(payload)
	}

	output.Bold("%s", s.Name)
	output.Printf("  Underlying: %s  spot %s  expiry %s\n",
		s.Underlying, utils.FormatPrice(spot), s.Expiry.Format("02 Jan 2006"))

	legTable := NewTable(output, "Leg", "Side", "Qty", "Entry")
	for _, leg := range s.Legs {
		legTable.AddRow(
			leg.Instrument.Symbol(),
			string(leg.Position),
			fmt.Sprintf("%d", leg.Quantity),
			utils.FormatPrice(leg.EntryPrice),
		)
	}
	legTable.Render()

	output.Printf("  Max profit:  %s\n", formatBound(s.MaxProfit))
	output.Printf("  Max loss:    %s\n", formatBound(s.MaxLoss))
	output.Printf("  Net premium: %s\n", formatPremium(s.NetPremium))
	output.Printf("  Margin:      %s\n", utils.FormatIndianCurrency(s.MarginRequired))
	if len(s.Breakevens) > 0 {
		bes := make([]string, 0, len(s.Breakevens))
		for _, be := range s.Breakevens {
			bes = append(bes, utils.FormatPrice(be))
		}
		output.Printf("  Breakevens:  %s\n", strings.Join(bes, ", "))
	}

	if showPayoff {
		payoff := app.Builder.PayoffAtExpiry(s, 0, 0)
		output.Println()
		output.Bold("Payoff at expiry")
		curve := NewTable(output, "Settle", "P&L")
		// Print every 10th point; 100 rows would swamp the terminal.
		for i := 0; i < len(payoff.Prices); i += 10 {
			curve.AddRow(
				fmt.Sprintf("%.2f", payoff.Prices[i]),
				output.FormatPnL(payoff.Payoffs[i]),
			)
		}
		curve.Render()
	}

	if pnlAt > 0 {
		valuation := app.Builder.CalculatePnL(s, pnlAt)
		output.Println()
		output.Bold("Mark to %s", utils.FormatPrice(pnlAt))
		output.Printf("  Total P&L:  %s (%s)\n",
			output.FormatPnL(valuation.TotalPnL), output.FormatPercent(valuation.PnLPercent))
		output.Printf("  Mkt value:  %s\n", utils.FormatIndianCurrency(valuation.TotalCurrentValue))
	}
	return nil
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "Unlimited"
	}
	return utils.FormatIndianCurrency(v)
}

func formatPremium(v float64) string {
	if v < 0 {
		return utils.FormatIndianCurrency(-v) + " credit"
	}
	return utils.FormatIndianCurrency(v) + " debit"
}

func newBullCallSpreadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bull-call-spread <symbol> <lower-strike> <upper-strike>",
		Short: "Buy the lower call, sell the upper call",
		Example: `  derivsim strategy bull-call-spread NIFTY 19500 19700
  derivsim strategy bull-call-spread NIFTY 19500 19700 --payoff`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			lower, err := parseFloatArg(args[1], "lower strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			upper, err := parseFloatArg(args[2], "upper strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			quantity, _ := cmd.Flags().GetInt("quantity")

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.BullCallSpread(underlying, spot, expiry, lower, upper, quantity)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newBearPutSpreadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bear-put-spread <symbol> <lower-strike> <upper-strike>",
		Short: "Buy the upper put, sell the lower put",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			lower, err := parseFloatArg(args[1], "lower strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			upper, err := parseFloatArg(args[2], "upper strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			quantity, _ := cmd.Flags().GetInt("quantity")

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.BearPutSpread(underlying, spot, expiry, lower, upper, quantity)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newStraddleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "straddle <symbol> <strike>",
		Short: "Buy or sell a call and put at the same strike",
		Example: `  derivsim strategy straddle NIFTY 19500
  derivsim strategy straddle NIFTY 19500 --short`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			strike, err := parseFloatArg(args[1], "strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			quantity, _ := cmd.Flags().GetInt("quantity")
			short, _ := cmd.Flags().GetBool("short")
			side := models.PositionBuy
			if short {
				side = models.PositionSell
			}

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.Straddle(underlying, spot, expiry, strike, quantity, side)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	cmd.Flags().Bool("short", false, "sell the straddle instead of buying it")
	return cmd
}

func newIronCondorCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iron-condor <symbol> <put-lower> <put-upper> <call-lower> <call-upper>",
		Short: "Sell an inner strangle, buy outer wings",
		Example: `  derivsim strategy iron-condor NIFTY 19000 19200 19800 20000
  derivsim strategy iron-condor NIFTY 19000 19200 19800 20000 --payoff`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			strikes := make([]float64, 4)
			names := []string{"put lower", "put upper", "call lower", "call upper"}
			for i := 0; i < 4; i++ {
				v, err := parseFloatArg(args[i+1], names[i]+" strike")
				if err != nil {
					output.Error("%v", err)
					return err
				}
				strikes[i] = v
			}
			quantity, _ := cmd.Flags().GetInt("quantity")

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.IronCondor(underlying, spot, expiry, strikes[0], strikes[1], strikes[2], strikes[3], quantity)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newCoveredCallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covered-call <symbol> <call-strike> <stock-quantity>",
		Short: "Hold stock and sell calls against it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			strike, err := parseFloatArg(args[1], "call strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			stockQty, err := parseIntArg(args[2], "stock quantity")
			if err != nil {
				output.Error("%v", err)
				return err
			}

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.CoveredCall(underlying, spot, expiry, strike, stockQty)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newProtectivePutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protective-put <symbol> <put-strike> <stock-quantity>",
		Short: "Hold stock and buy puts to floor the downside",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			strike, err := parseFloatArg(args[1], "put strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			stockQty, err := parseIntArg(args[2], "stock quantity")
			if err != nil {
				output.Error("%v", err)
				return err
			}

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.ProtectivePut(underlying, spot, expiry, strike, stockQty)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newFuturesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "futures <symbol> <buy|sell>",
		Short: "Take a plain futures position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			var side models.PositionType
			switch strings.ToUpper(args[1]) {
			case "BUY", "LONG":
				side = models.PositionBuy
			case "SELL", "SHORT":
				side = models.PositionSell
			default:
				output.Error("Invalid side %q, use buy or sell", args[1])
				return errInvalidArg
			}
			quantity, _ := cmd.Flags().GetInt("quantity")

			spot, expiry, err := strategyContext(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			s, err := app.Builder.FuturesPosition(underlying, expiry, side, quantity)
			if err != nil {
				output.Error("Failed to build strategy: %v", err)
				return err
			}
			return renderStrategy(cmd, app, s, spot)
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

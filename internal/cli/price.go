package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"derivsim/internal/models"
	"derivsim/internal/pricing"
	"derivsim/pkg/utils"
)

func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newMarginCmd(app))
}

// parseOptionType maps user input to an option type.
func parseOptionType(s string) (models.OptionType, bool) {
	switch strings.ToUpper(s) {
	case "CALL", "CE", "C":
		return models.OptionCall, true
	case "PUT", "PE", "P":
		return models.OptionPut, true
	}
	return "", false
}

func parseExpiryFlag(cmd *cobra.Command, app *App, underlying string) (time.Time, error) {
	expiryStr, _ := cmd.Flags().GetString("expiry")
	if expiryStr == "" {
		expiries, err := app.Catalog.ExpiryDates(underlying)
		if err != nil {
			return time.Time{}, err
		}
		return expiries[0], nil
	}
	day, err := time.ParseInLocation("2006-01-02", expiryStr, utils.IndiaLocation)
	if err != nil {
		return time.Time{}, err
	}
	return utils.AtExpiryTime(day), nil
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <symbol> <strike> <call|put>",
		Short: "Price an option with Black-Scholes",
		Example: `  derivsim price NIFTY 19500 call
  derivsim price BANKNIFTY 44000 put --expiry 2024-06-27
  derivsim price RELIANCE 2500 call --spot 2480`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			strike, err := parseFloatArg(args[1], "strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			optType, ok := parseOptionType(args[2])
			if !ok {
				output.Error("Invalid option type %q, use call or put", args[2])
				return errInvalidArg
			}

			spot, _ := cmd.Flags().GetFloat64("spot")
			if spot == 0 {
				spot = app.Provider.SpotPrice(underlying)
			}
			expiry, err := parseExpiryFlag(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			contract, err := app.Catalog.BuildOption(underlying, strike, optType, expiry, spot)
			if err != nil {
				output.Error("Failed to build contract: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":    contract.Symbol(),
					"spot":      spot,
					"strike":    strike,
					"type":      optType,
					"expiry":    expiry.Format("2006-01-02"),
					"premium":   contract.Premium,
					"intrinsic": contract.IntrinsicValue(spot),
					"lot_size":  contract.Lot,
				})
			}

			output.Bold("%s", contract.Symbol())
			output.Printf("  Spot:      %s\n", utils.FormatPrice(spot))
			output.Printf("  Premium:   %s\n", utils.FormatPrice(contract.Premium))
			output.Printf("  Intrinsic: %s\n", utils.FormatPrice(contract.IntrinsicValue(spot)))
			output.Printf("  Time val:  %s\n", utils.FormatPrice(contract.Premium-contract.IntrinsicValue(spot)))
			output.Printf("  Per lot:   %s (lot %d)\n", utils.FormatIndianCurrency(contract.Premium*float64(contract.Lot)), contract.Lot)
			return nil
		},
	}

	cmd.Flags().String("expiry", "", "expiry date (YYYY-MM-DD, default nearest)")
	cmd.Flags().Float64("spot", 0, "spot price override (default simulated)")
	return cmd
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greeks <symbol> <strike> <call|put>",
		Short: "Compute option Greeks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])

			strike, err := parseFloatArg(args[1], "strike")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			optType, ok := parseOptionType(args[2])
			if !ok {
				output.Error("Invalid option type %q, use call or put", args[2])
				return errInvalidArg
			}

			spot, _ := cmd.Flags().GetFloat64("spot")
			if spot == 0 {
				spot = app.Provider.SpotPrice(underlying)
			}
			expiry, err := parseExpiryFlag(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			contract, err := app.Catalog.BuildOption(underlying, strike, optType, expiry, spot)
			if err != nil {
				output.Error("Failed to build contract: %v", err)
				return err
			}
			greeks := pricing.ComputeGreeks(spot, strike, contract.TimeToExpiry,
				app.Catalog.RiskFreeRate(), app.Catalog.Volatility(), optType)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol": contract.Symbol(),
					"spot":   spot,
					"delta":  greeks.Delta,
					"gamma":  greeks.Gamma,
					"theta":  greeks.Theta,
					"vega":   greeks.Vega,
				})
			}

			output.Bold("%s", contract.Symbol())
			output.Printf("  Delta: %8.4f\n", greeks.Delta)
			output.Printf("  Gamma: %8.4f\n", greeks.Gamma)
			output.Printf("  Theta: %8.2f per day\n", greeks.Theta)
			output.Printf("  Vega:  %8.2f per 1%% vol\n", greeks.Vega)
			return nil
		},
	}

	cmd.Flags().String("expiry", "", "expiry date (YYYY-MM-DD, default nearest)")
	cmd.Flags().Float64("spot", 0, "spot price override (default simulated)")
	return cmd
}

func newMarginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "margin <symbol>",
		Short: "Show futures margin requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			underlying := strings.ToUpper(args[0])
			quantity, _ := cmd.Flags().GetInt("quantity")

			spot := app.Provider.SpotPrice(underlying)
			expiry, err := parseExpiryFlag(cmd, app, underlying)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			fut, err := app.Catalog.BuildFuture(underlying, spot, expiry)
			if err != nil {
				output.Error("Failed to build contract: %v", err)
				return err
			}
			margin := app.Catalog.MarginRequirement(fut, quantity, models.PositionBuy, spot)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":   fut.Symbol(),
					"spot":     spot,
					"quantity": quantity,
					"margin":   margin,
				})
			}

			output.Bold("%s", fut.Symbol())
			output.Printf("  Spot:     %s\n", utils.FormatPrice(spot))
			output.Printf("  Lot size: %d\n", fut.Lot)
			output.Printf("  Margin:   %s (%d lot(s))\n", utils.FormatIndianCurrency(margin), quantity)
			return nil
		},
	}

	cmd.Flags().Int("quantity", 1, "number of lots")
	cmd.Flags().String("expiry", "", "expiry date (YYYY-MM-DD, default nearest)")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"derivsim/internal/backtest"
	"derivsim/pkg/utils"
)

func addBacktestCommands(rootCmd *cobra.Command, app *App) {
	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run historical strategy backtests",
	}

	backtestCmd.AddCommand(newBacktestRunCmd(app))
	backtestCmd.AddCommand(newBacktestCompareCmd(app))
	backtestCmd.AddCommand(newBacktestOptimizeCmd(app))

	rootCmd.AddCommand(backtestCmd)
}

func parseStrategyName(s string) (backtest.StrategyName, bool) {
	for _, name := range backtest.Strategies() {
		if strings.EqualFold(s, string(name)) {
			return name, true
		}
	}
	switch strings.ToLower(s) {
	case "ma", "ma-crossover", "crossover":
		return backtest.StrategyMACrossover, true
	case "rsi", "rsi-mean-reversion", "mean-reversion":
		return backtest.StrategyRSI, true
	case "breakout":
		return backtest.StrategyBreakout, true
	}
	return "", false
}

func backtestParams(cmd *cobra.Command) backtest.Params {
	fast, _ := cmd.Flags().GetInt("fast-ma")
	slow, _ := cmd.Flags().GetInt("slow-ma")
	rsiPeriod, _ := cmd.Flags().GetInt("rsi-period")
	oversold, _ := cmd.Flags().GetFloat64("oversold")
	overbought, _ := cmd.Flags().GetFloat64("overbought")
	lookback, _ := cmd.Flags().GetInt("lookback")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	return backtest.Params{
		FastMA:            fast,
		SlowMA:            slow,
		RSIPeriod:         rsiPeriod,
		Oversold:          oversold,
		Overbought:        overbought,
		Lookback:          lookback,
		BreakoutThreshold: threshold,
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Int("fast-ma", 0, "fast moving average period (MA crossover)")
	cmd.Flags().Int("slow-ma", 0, "slow moving average period (MA crossover)")
	cmd.Flags().Int("rsi-period", 0, "RSI period (mean reversion)")
	cmd.Flags().Float64("oversold", 0, "RSI oversold entry level")
	cmd.Flags().Float64("overbought", 0, "RSI overbought exit level")
	cmd.Flags().Int("lookback", 0, "breakout lookback window")
	cmd.Flags().Float64("threshold", 0, "breakout threshold fraction")
}

func renderResult(output *Output, result *backtest.Result) {
	output.Bold("%s on %s", result.StrategyName, result.Symbol)
	output.Printf("  Period:        %s to %s\n",
		result.StartDate.Format("02 Jan 2006"), result.EndDate.Format("02 Jan 2006"))
	output.Printf("  Capital:       %s\n", utils.FormatIndianCurrency(result.InitialCapital))
	output.Println()
	output.Printf("  Total return:  %s\n", output.FormatPercent(result.TotalReturn))
	output.Printf("  Annual return: %s\n", output.FormatPercent(result.AnnualReturn))
	output.Printf("  Volatility:    %.2f%%\n", result.Volatility)
	output.Printf("  Sharpe ratio:  %.2f\n", result.SharpeRatio)
	output.Printf("  Max drawdown:  %.2f%%\n", result.MaxDrawdown)
	if result.VaR95 > 0 {
		output.Printf("  VaR (95%%):     %s\n", utils.FormatIndianCurrency(result.VaR95))
	}
	output.Println()
	output.Printf("  Trades: %d  wins: %d  losses: %d  win rate: %.1f%%\n",
		result.TotalTrades, result.WinningTrades, result.LosingTrades, result.WinRate)
	if result.TotalTrades > 0 {
		output.Printf("  Avg win: %s  avg loss: %s\n",
			output.FormatPnL(result.AvgWin), output.FormatPnL(result.AvgLoss))
	}
}

func newBacktestRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <strategy> <symbol>",
		Short: "Backtest one strategy on one symbol",
		Example: `  derivsim backtest run ma NIFTY
  derivsim backtest run rsi RELIANCE --days 180
  derivsim backtest run breakout NIFTY --lookback 30 --threshold 0.03 --trades`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			name, ok := parseStrategyName(args[0])
			if !ok {
				output.Error("Unknown strategy %q, use one of: ma, rsi, breakout", args[0])
				return errInvalidArg
			}
			symbol := strings.ToUpper(args[1])
			days, _ := cmd.Flags().GetInt("days")
			capital, _ := cmd.Flags().GetFloat64("capital")

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			result := app.Engine.Run(ctx, backtest.Config{
				Strategy:       name,
				Symbol:         symbol,
				Days:           days,
				InitialCapital: capital,
				Params:         backtestParams(cmd),
			})
			if result.Err != nil {
				output.Error("Backtest failed: %v", result.Err)
				return result.Err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			renderResult(output, result)

			showTrades, _ := cmd.Flags().GetBool("trades")
			if showTrades && len(result.Trades) > 0 {
				output.Println()
				table := NewTable(output, "Entry", "Exit", "Entry Px", "Exit Px", "Qty", "P&L")
				for _, trade := range result.Trades {
					table.AddRow(
						trade.EntryDate.Format("02 Jan 06"),
						trade.ExitDate.Format("02 Jan 06"),
						fmt.Sprintf("%.2f", trade.EntryPrice),
						fmt.Sprintf("%.2f", trade.ExitPrice),
						fmt.Sprintf("%d", trade.Quantity),
						output.FormatPnL(trade.PnL),
					)
				}
				table.Render()
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 365, "history window in days")
	cmd.Flags().Float64("capital", 100000, "initial capital")
	cmd.Flags().Bool("trades", false, "list individual trades")
	addParamFlags(cmd)
	return cmd
}

func newBacktestCompareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <symbol>",
		Short: "Run all strategies on a symbol and rank by Sharpe",
		Example: `  derivsim backtest compare NIFTY
  derivsim backtest compare RELIANCE --days 180`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			days, _ := cmd.Flags().GetInt("days")
			capital, _ := cmd.Flags().GetFloat64("capital")

			configs := make([]backtest.Config, 0, len(backtest.Strategies()))
			for _, name := range backtest.Strategies() {
				configs = append(configs, backtest.Config{
					Strategy:       name,
					Symbol:         symbol,
					Days:           days,
					InitialCapital: capital,
				})
			}

			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
			defer cancel()

			results := app.Engine.CompareStrategies(ctx, configs)

			if output.IsJSON() {
				return output.JSON(results)
			}

			table := NewTable(output, "Strategy", "Return", "Sharpe", "Drawdown", "Trades", "Win Rate")
			for _, result := range results {
				if result.Err != nil {
					table.AddRow(string(result.StrategyName), output.Red("failed"), "-", "-", "-", "-")
					continue
				}
				table.AddRow(
					string(result.StrategyName),
					output.FormatPercent(result.TotalReturn),
					fmt.Sprintf("%.2f", result.SharpeRatio),
					fmt.Sprintf("%.2f%%", result.MaxDrawdown),
					fmt.Sprintf("%d", result.TotalTrades),
					fmt.Sprintf("%.1f%%", result.WinRate),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("days", 365, "history window in days")
	cmd.Flags().Float64("capital", 100000, "initial capital")
	return cmd
}

func newBacktestOptimizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <strategy> <symbol>",
		Short: "Grid-search strategy parameters for the best Sharpe",
		Example: `  derivsim backtest optimize ma NIFTY
  derivsim backtest optimize rsi RELIANCE --days 180`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			name, ok := parseStrategyName(args[0])
			if !ok {
				output.Error("Unknown strategy %q, use one of: ma, rsi, breakout", args[0])
				return errInvalidArg
			}
			symbol := strings.ToUpper(args[1])
			days, _ := cmd.Flags().GetInt("days")

			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
			defer cancel()

			opt, err := app.Engine.Optimize(ctx, name, symbol, days, backtest.ParamRanges{})
			if err != nil {
				output.Error("Optimization failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(opt)
			}

			output.Bold("Optimized %s on %s (%d combinations)", name, symbol, opt.Evaluated)
			switch name {
			case backtest.StrategyMACrossover:
				output.Printf("  Best params: fast %d / slow %d\n", opt.BestParams.FastMA, opt.BestParams.SlowMA)
			case backtest.StrategyRSI:
				output.Printf("  Best params: RSI period %d\n", opt.BestParams.RSIPeriod)
			case backtest.StrategyBreakout:
				output.Printf("  Best params: lookback %d\n", opt.BestParams.Lookback)
			}
			output.Printf("  Best Sharpe: %.2f\n", opt.BestSharpe)
			if opt.BestResult != nil {
				output.Println()
				renderResult(output, opt.BestResult)
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 365, "history window in days")
	return cmd
}

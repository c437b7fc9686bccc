package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"goldwatch/internal/app"
)

var (
	simulateSpot     float64
	simulateRate     float64
	simulateIdentity string
	simulateUnit     string
	simulateCurrency string
	simulatePurity   int
	simulateLower    float64
	simulateUpper    float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate a synthetic subscription against supplied reference values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSpot <= 0 || simulateRate <= 0 {
			return errors.New("--spot and --rate must be greater than 0")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			SpotUSD:  decimal.NewFromFloat(simulateSpot),
			Rate:     decimal.NewFromFloat(simulateRate),
			Identity: simulateIdentity,
			Unit:     simulateUnit,
			Currency: simulateCurrency,
			Purity:   simulatePurity,
			Lower:    simulateLower,
			Upper:    simulateUpper,
		})
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateSpot, "spot", 0, "Spot gold price in USD per troy ounce")
	simulateCmd.Flags().Float64Var(&simulateRate, "rate", 0, "USD to JOD conversion rate")
	simulateCmd.Flags().StringVar(&simulateIdentity, "identity", "simulation@goldwatch.local", "Notification recipient")
	simulateCmd.Flags().StringVar(&simulateUnit, "unit", "ounce", "Price unit (ounce or gram)")
	simulateCmd.Flags().StringVar(&simulateCurrency, "currency", "USD", "Price currency (USD or JOD)")
	simulateCmd.Flags().IntVar(&simulatePurity, "purity", 24, "Gold purity in karat (24, 22, 21, 18)")
	simulateCmd.Flags().Float64Var(&simulateLower, "lower", 0, "Lower threshold")
	simulateCmd.Flags().Float64Var(&simulateUpper, "upper", 0, "Upper threshold")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/siamcraft/mfginv_backend/workflow"
)

// Recalculates stock forecasts. Meant to run from an external scheduler
// (Cloud Scheduler / cron); the engine itself holds no timers.
func main() {
	businessID := flag.String("business-id", "", "Business to forecast (required).")
	poolID := flag.Int("pool-id", 0, "Optional: forecast only one stock pool. If 0, forecasts all active pools.")
	windowDays := flag.Int("window-days", 0, "Usage window in days (default 90).")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(1)
	}

	// Explicit DB connect (config no longer connects DB in init()).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	logger := config.GetLogger()
	ctx := utils.SetBusinessIdInContext(context.Background(), strings.TrimSpace(*businessID))
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "ForecastRunner")

	if *poolID > 0 {
		forecast, err := workflow.CalculateForecast(ctx, logger, *poolID, *windowDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "forecast failed for pool %d: %v\n", *poolID, err)
			os.Exit(1)
		}
		fmt.Printf("pool %d: usage=%d/day stock-out in %d days urgency=%s recommended=%d\n",
			forecast.StockPoolId, forecast.AverageDailyUsage, forecast.DaysUntilStockOut,
			forecast.Urgency, forecast.RecommendedOrderQuantity)
		return
	}

	forecasts, err := workflow.CalculateAllForecasts(ctx, logger, *windowDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "forecast run failed: %v\n", err)
		os.Exit(1)
	}
	for _, f := range forecasts {
		fmt.Printf("pool %d: usage=%d/day stock-out in %d days urgency=%s recommended=%d\n",
			f.StockPoolId, f.AverageDailyUsage, f.DaysUntilStockOut, f.Urgency, f.RecommendedOrderQuantity)
	}
	fmt.Printf("forecasted %d pools\n", len(forecasts))
}

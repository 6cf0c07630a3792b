package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/siamcraft/mfginv_backend/workflow"
)

// Removes forecast snapshots older than 30 days. Meant to run from an
// external scheduler (Cloud Scheduler / cron).
func main() {
	businessID := flag.String("business-id", "", "Business to clean up (required).")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	logger := config.GetLogger()
	ctx := utils.SetBusinessIdInContext(context.Background(), strings.TrimSpace(*businessID))
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "ForecastCleanup")

	removed, err := workflow.CleanupStaleForecasts(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("removed %d stale forecast snapshots\n", removed)
}

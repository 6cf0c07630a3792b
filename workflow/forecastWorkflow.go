package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/sirupsen/logrus"
)

const DefaultForecastWindowDays = 90

// ForecastStaleAfter is how old a snapshot may get before the cleanup job
// removes it.
const ForecastStaleAfter = 30 * 24 * time.Hour

// ClassifyUrgency maps projected days-until-stockout to an urgency band.
// Boundaries are inclusive on the lower band: 7 is CRITICAL, 8 is HIGH.
func ClassifyUrgency(daysUntilStockOut int) models.UrgencyLevel {
	switch {
	case daysUntilStockOut <= 7:
		return models.UrgencyLevelCritical
	case daysUntilStockOut <= 14:
		return models.UrgencyLevelHigh
	case daysUntilStockOut <= 30:
		return models.UrgencyLevelMedium
	default:
		return models.UrgencyLevelLow
	}
}

// AverageUsage converts a window total into daily/weekly/monthly averages
// (integer floor division).
func AverageUsage(totalUsage int, elapsedDays int) (daily, weekly, monthly int) {
	if elapsedDays <= 0 {
		elapsedDays = 1
	}
	daily = totalUsage / elapsedDays
	weekly = daily * 7
	monthly = daily * 30
	return daily, weekly, monthly
}

// DaysUntilStockOut projects depletion from the daily average; zero demand
// yields the no-demand sentinel.
func DaysUntilStockOut(currentQuantity int, averageDailyUsage int) int {
	if averageDailyUsage <= 0 {
		return models.NoDemandSentinel
	}
	return currentQuantity / averageDailyUsage
}

// RecommendedOrderQuantity pads a month of demand with safety stock and
// supplier lead time.
func RecommendedOrderQuantity(monthly, daily, safetyStockDays, leadTimeDays int) int {
	return monthly + daily*safetyStockDays + daily*leadTimeDays
}

type reorderSettings struct {
	SafetyStockDays int `json:"safety_stock_days"`
	LeadTimeDays    int `json:"lead_time_days"`
}

// per-pool reorder settings, redis or db
func getReorderSettings(businessId string, pool *models.StockPool) reorderSettings {
	settings := reorderSettings{}
	redisKey := fmt.Sprintf("reorderSettings:%s:%d", businessId, pool.ID)
	exists, err := config.GetRedisObject(redisKey, &settings)
	if err == nil && exists && settings.SafetyStockDays > 0 && settings.LeadTimeDays > 0 {
		return settings
	}

	settings.SafetyStockDays = pool.SafetyStockDays
	if settings.SafetyStockDays <= 0 {
		settings.SafetyStockDays = 7
	}
	settings.LeadTimeDays = pool.LeadTimeDays
	if settings.LeadTimeDays <= 0 {
		settings.LeadTimeDays = 14
	}
	_ = config.SetRedisObject(redisKey, &settings, 0)
	return settings
}

// consumedFromPool sums a line's draw on one pool, flooring each BOM entry
// separately. Deduction floors per entry too, so two fractional entries on
// the same pool never count more usage here than deduction removes.
func consumedFromPool(orderQty int, requirements []decimal.Decimal) int {
	total := 0
	for _, required := range requirements {
		if qty := neededQuantity(orderQty, required); qty > 0 {
			total += qty
		}
	}
	return total
}

// CalculateForecast scans the order history window for every product whose
// BOM references the pool, sums the window's consumption, and persists a
// depletion/reorder snapshot. Read-mostly: runs without locks and reflects
// whatever quantities are visible at read time.
func CalculateForecast(ctx context.Context, logger *logrus.Logger, stockPoolId int, windowDays int) (*models.StockForecast, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if windowDays <= 0 {
		windowDays = DefaultForecastWindowDays
	}

	pool, err := models.GetStockPool(ctx, stockPoolId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	// required quantity per produced unit, per product using this pool
	var entries []*models.BOMEntry
	if err := db.WithContext(ctx).
		Where("business_id = ? AND stock_pool_id = ?", businessId, stockPoolId).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	entryRequirements := make(map[int][]decimal.Decimal, len(entries))
	productIds := make([]int, 0, len(entries))
	for _, entry := range entries {
		if _, ok := entryRequirements[entry.ProductId]; !ok {
			productIds = append(productIds, entry.ProductId)
		}
		entryRequirements[entry.ProductId] = append(entryRequirements[entry.ProductId], entry.RequiredQuantity)
	}

	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -windowDays)

	totalUsage := 0

	if len(productIds) > 0 {
		type usageRow struct {
			OrderDate time.Time `json:"order_date"`
			ProductId int       `json:"product_id"`
			Quantity  int       `json:"quantity"`
		}
		var rows []usageRow
		if err := db.WithContext(ctx).Model(&models.OrderLine{}).
			Select("orders.order_date AS order_date, order_lines.product_id AS product_id, order_lines.quantity AS quantity").
			Joins("JOIN orders ON orders.id = order_lines.order_id").
			Where("order_lines.business_id = ?", businessId).
			Where("order_lines.product_id IN ?", productIds).
			Where("orders.order_date >= ? AND orders.order_date <= ?", windowStart, now).
			Where("orders.status NOT IN ?", []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusReturned}).
			Scan(&rows).Error; err != nil {
			return nil, err
		}

		for _, row := range rows {
			totalUsage += consumedFromPool(row.Quantity, entryRequirements[row.ProductId])
		}
	}

	elapsedDays := int(now.Sub(windowStart).Hours() / 24)
	if elapsedDays <= 0 {
		elapsedDays = 1
	}

	daily, weekly, monthly := AverageUsage(totalUsage, elapsedDays)
	daysLeft := DaysUntilStockOut(pool.Quantity, daily)
	settings := getReorderSettings(businessId, pool)
	recommended := RecommendedOrderQuantity(monthly, daily, settings.SafetyStockDays, settings.LeadTimeDays)
	estimatedCost := decimal.NewFromInt(int64(recommended)).Mul(pool.UnitCost()).Round(models.CostScale)

	forecast := models.StockForecast{
		BusinessId:               businessId,
		StockPoolId:              pool.ID,
		WindowDays:               windowDays,
		TotalUsage:               totalUsage,
		ElapsedDays:              elapsedDays,
		AverageDailyUsage:        daily,
		AverageWeeklyUsage:       weekly,
		AverageMonthlyUsage:      monthly,
		CurrentQuantity:          pool.Quantity,
		DaysUntilStockOut:        daysLeft,
		Urgency:                  ClassifyUrgency(daysLeft),
		RecommendedOrderQuantity: recommended,
		EstimatedOrderCost:       estimatedCost,
		CalculatedAt:             now,
	}

	if err := models.SaveForecast(db.WithContext(ctx), &forecast); err != nil {
		config.LogError(logger, "forecastWorkflow", "CalculateForecast", "SaveForecast", stockPoolId, err)
		return nil, err
	}
	return &forecast, nil
}

// CalculateAllForecasts snapshots every active pool. A best-effort Redis lock
// keeps overlapping scheduler triggers from doubling the work; correctness
// does not depend on it (snapshots are append-only).
func CalculateAllForecasts(ctx context.Context, logger *logrus.Logger, windowDays int) ([]*models.StockForecast, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "forecastRun:"+businessId, 5*time.Minute, nil)
		if err == nil {
			defer lock.Release(ctx)
		} else if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(logger, "forecastWorkflow", "CalculateAllForecasts", "redislock.Obtain", businessId, err)
		}
	}

	pools, err := models.GetActiveStockPools(ctx)
	if err != nil {
		return nil, err
	}

	forecasts := make([]*models.StockForecast, 0, len(pools))
	for _, pool := range pools {
		forecast, err := CalculateForecast(ctx, logger, pool.ID, windowDays)
		if err != nil {
			// keep going; one bad pool must not starve the rest of the run
			config.LogError(logger, "forecastWorkflow", "CalculateAllForecasts", "CalculateForecast", pool.ID, err)
			continue
		}
		forecasts = append(forecasts, forecast)
	}
	return forecasts, nil
}

// CleanupStaleForecasts removes snapshots past ForecastStaleAfter. Driven by
// an external scheduler.
func CleanupStaleForecasts(ctx context.Context, logger *logrus.Logger) (int64, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, errors.New("business id is required")
	}

	cutoff := time.Now().UTC().Add(-ForecastStaleAfter)
	removed, err := models.DeleteStaleForecasts(ctx, businessId, cutoff)
	if err != nil {
		config.LogError(logger, "forecastWorkflow", "CleanupStaleForecasts", "DeleteStaleForecasts", businessId, err)
		return 0, err
	}
	return removed, nil
}

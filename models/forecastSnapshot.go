package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/utils"
	"gorm.io/gorm"
)

// NoDemandSentinel is stored as DaysUntilStockOut when the usage window shows
// no measurable demand for the pool.
const NoDemandSentinel = 999

// StockForecast is a persisted depletion/reorder projection for one pool.
// Snapshots older than 30 days are eligible for cleanup by an external
// scheduler (DeleteStaleForecasts).
type StockForecast struct {
	ID          int    `gorm:"primary_key" json:"id"`
	BusinessId  string `gorm:"index;not null" json:"business_id"`
	StockPoolId int    `gorm:"index;not null" json:"stock_pool_id"`
	WindowDays  int    `gorm:"not null;default:90" json:"window_days"`

	TotalUsage          int `gorm:"not null;default:0" json:"total_usage"`
	ElapsedDays         int `gorm:"not null;default:0" json:"elapsed_days"`
	AverageDailyUsage   int `gorm:"not null;default:0" json:"average_daily_usage"`
	AverageWeeklyUsage  int `gorm:"not null;default:0" json:"average_weekly_usage"`
	AverageMonthlyUsage int `gorm:"not null;default:0" json:"average_monthly_usage"`

	CurrentQuantity   int          `gorm:"not null;default:0" json:"current_quantity"`
	DaysUntilStockOut int          `gorm:"not null;default:0" json:"days_until_stock_out"`
	Urgency           UrgencyLevel `gorm:"type:enum('LOW','MEDIUM','HIGH','CRITICAL');default:LOW" json:"urgency"`

	RecommendedOrderQuantity int             `gorm:"not null;default:0" json:"recommended_order_quantity"`
	EstimatedOrderCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"estimated_order_cost"`

	CalculatedAt time.Time `gorm:"index;not null" json:"calculated_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func SaveForecast(tx *gorm.DB, forecast *StockForecast) error {
	return tx.Create(forecast).Error
}

func GetLatestForecast(ctx context.Context, stockPoolId int) (*StockForecast, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var forecast StockForecast
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND stock_pool_id = ?", businessId, stockPoolId).
		Order("calculated_at DESC").
		First(&forecast).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &forecast, nil
}

// DeleteStaleForecasts removes snapshots older than the cutoff. Invoked by an
// external scheduler; the engine holds no timers.
func DeleteStaleForecasts(ctx context.Context, businessId string, olderThan time.Time) (int64, error) {
	db := config.GetDB()
	res := db.WithContext(ctx).
		Where("business_id = ? AND calculated_at < ?", businessId, olderThan).
		Delete(&StockForecast{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

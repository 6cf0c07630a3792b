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

// StockLot groups stock pools imported together. Once COMPLETED the lot is
// immutable and its aggregate landed cost has been handed off to the
// financial sink (via the posting outbox).
type StockLot struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null;uniqueIndex:idx_stock_lots_business_lot,priority:1" json:"business_id"`
	LotNumber   string          `gorm:"size:100;not null;uniqueIndex:idx_stock_lots_business_lot,priority:2" json:"lot_number"`
	Status      StockLotStatus  `gorm:"type:enum('PENDING','ARRIVED','COMPLETED','CANCELLED');default:PENDING" json:"status"`
	ArrivalDate *time.Time      `json:"arrival_date"`
	TotalCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStockLot struct {
	LotNumber   string     `json:"lot_number" binding:"required"`
	ArrivalDate *time.Time `json:"arrival_date"`
}

func CreateStockLot(ctx context.Context, input *NewStockLot) (*StockLot, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateUnique[StockLot](ctx, businessId, "lot_number", input.LotNumber, 0); err != nil {
		return nil, err
	}

	lot := StockLot{
		BusinessId:  businessId,
		LotNumber:   input.LotNumber,
		Status:      StockLotStatusPending,
		ArrivalDate: input.ArrivalDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&lot).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("lot number already exists")
		}
		return nil, err
	}
	return &lot, nil
}

func UpdateStockLot(ctx context.Context, id int, input *NewStockLot) (*StockLot, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lot, err := utils.FetchModel[StockLot](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	// completed lots are immutable: the aggregate cost has been posted
	if lot.Status == StockLotStatusCompleted {
		return nil, errors.New("completed lot cannot be modified")
	}
	if err := utils.ValidateUnique[StockLot](ctx, businessId, "lot_number", input.LotNumber, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(lot).Updates(map[string]interface{}{
		"LotNumber":   input.LotNumber,
		"ArrivalDate": input.ArrivalDate,
	}).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

func DeleteStockLot(ctx context.Context, id int) (*StockLot, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lot, err := utils.FetchModel[StockLot](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if lot.Status == StockLotStatusCompleted {
		return nil, errors.New("completed lot cannot be deleted")
	}

	db := config.GetDB()
	tx := db.Begin()
	// detach member pools before removing the lot (back-reference only)
	if err := tx.WithContext(ctx).Model(&StockPool{}).
		Where("business_id = ? AND stock_lot_id = ?", businessId, id).
		Update("stock_lot_id", 0).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(lot).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return lot, tx.Commit().Error
}

func MarkStockLotArrived(ctx context.Context, id int, arrivalDate time.Time) (*StockLot, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lot, err := utils.FetchModel[StockLot](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if lot.Status != StockLotStatusPending {
		return nil, errors.New("only pending lots can be marked arrived")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(lot).Updates(map[string]interface{}{
		"Status":      StockLotStatusArrived,
		"ArrivalDate": &arrivalDate,
	}).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

// AggregateLotCost sums TotalLandedCost across the lot's member pools.
func AggregateLotCost(tx *gorm.DB, ctx context.Context, businessId string, lotId int) (decimal.Decimal, error) {
	pools, err := GetStockPoolsByLot(tx, ctx, businessId, lotId)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, pool := range pools {
		total = total.Add(pool.TotalLandedCost())
	}
	return total.Round(CostScale), nil
}

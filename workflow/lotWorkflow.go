package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LotCompletionPayload is the posting body handed to the financial sink when
// a lot is completed. Costs are frozen at this moment: the lot becomes
// immutable and later pricing edits never reach the sink.
type LotCompletionPayload struct {
	LotId     int              `json:"lot_id"`
	LotNumber string           `json:"lot_number"`
	TotalCost decimal.Decimal  `json:"total_cost"`
	Pools     []LotPoolLanding `json:"pools"`
}

type LotPoolLanding struct {
	StockPoolId int                     `json:"stock_pool_id"`
	Variant     models.StockPoolVariant `json:"variant"`
	Quantity    int                     `json:"quantity"`
	UnitCost    decimal.Decimal         `json:"unit_cost"`
	TotalCost   decimal.Decimal         `json:"total_cost"`
}

// CompleteStockLot aggregates the lot's landed cost, marks it COMPLETED and
// writes the financial posting in the same transaction (transactional
// outbox). Only ARRIVED lots can be completed; the lot row is locked so two
// concurrent completions cannot double-post.
func CompleteStockLot(ctx context.Context, logger *logrus.Logger, lotId int) (*models.StockLot, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var lot models.StockLot
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, lotId).
		First(&lot).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if lot.Status != models.StockLotStatusArrived {
		tx.Rollback()
		return nil, errors.New("only arrived lots can be completed")
	}

	pools, err := models.GetStockPoolsByLot(tx, ctx, businessId, lotId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	payload := LotCompletionPayload{
		LotId:     lot.ID,
		LotNumber: lot.LotNumber,
	}
	total := decimal.Zero
	for _, pool := range pools {
		poolTotal := pool.TotalLandedCost()
		payload.Pools = append(payload.Pools, LotPoolLanding{
			StockPoolId: pool.ID,
			Variant:     pool.Variant,
			Quantity:    pool.Quantity,
			UnitCost:    pool.UnitCost(),
			TotalCost:   poolTotal,
		})
		total = total.Add(poolTotal)
	}
	total = total.Round(models.CostScale)
	payload.TotalCost = total

	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Model(&models.StockLot{}).
		Where("business_id = ? AND id = ?", businessId, lotId).
		Updates(map[string]interface{}{
			"status":     models.StockLotStatusCompleted,
			"total_cost": total,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := models.WriteFinancialPosting(ctx, tx, businessId, now, lot.ID, models.FinancialReferenceTypeStockLot, payload); err != nil {
		tx.Rollback()
		config.LogError(logger, "lotWorkflow", "CompleteStockLot", "WriteFinancialPosting", lotId, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	lot.Status = models.StockLotStatusCompleted
	lot.TotalCost = total
	return &lot, nil
}

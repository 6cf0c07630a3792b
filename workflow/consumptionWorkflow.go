package workflow

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IngredientReport is the per-ingredient outcome of a deduction or restore.
// Every ingredient the engine touched gets exactly one entry; nothing is
// swallowed.
type IngredientReport struct {
	BOMEntryId  int                      `json:"bom_entry_id"`
	StockPoolId int                      `json:"stock_pool_id"`
	NeededQty   int                      `json:"needed_qty"`
	Outcome     models.IngredientOutcome `json:"outcome"`
	Message     string                   `json:"message,omitempty"`
}

type DeductionResult struct {
	OrderLineId int                    `json:"order_line_id"`
	ProductId   int                    `json:"product_id"`
	Status      models.DeductionStatus `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Ingredients []IngredientReport     `json:"ingredients"`
}

// neededQuantity is orderQty x requiredQuantityPerUnit, floored to an integer
// (stock pools hold integral units).
func neededQuantity(orderQty int, requiredPerUnit decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(orderQty)).Mul(requiredPerUnit).Floor().IntPart())
}

// DeductOrderLine resolves the line's product and BOM, then deducts each
// ingredient from its stock pool under optimistic concurrency control.
//
// The line row is locked for the whole attempt, so two concurrent calls on
// the same PENDING line cannot both deduct: the loser waits on the lock and
// then sees a non-PENDING status. Ingredients are deducted independently: a
// failure on a later ingredient does not reverse earlier deductions (the
// report shows exactly which pools were touched, and RestoreOrderLine
// compensates COMPLETED lines).
func DeductOrderLine(ctx context.Context, logger *logrus.Logger, orderLineId int) (*DeductionResult, error) {

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

	line, err := models.GetOrderLineForUpdate(tx, ctx, businessId, orderLineId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if line.DeductionStatus != models.DeductionStatusPending {
		tx.Rollback()
		return nil, errors.New("order line is not pending deduction")
	}

	product, err := models.ResolveProduct(tx, ctx, businessId, line.ProductId, line.ProductSku, line.ProductName)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// backfill the resolved reference so the forecast scan can find the line
	if line.ProductId != product.ID {
		if uerr := tx.WithContext(ctx).Model(&models.OrderLine{}).
			Where("id = ?", line.ID).
			Update("product_id", product.ID).Error; uerr != nil {
			tx.Rollback()
			return nil, uerr
		}
		line.ProductId = product.ID
	}

	result := DeductionResult{
		OrderLineId: line.ID,
		ProductId:   product.ID,
	}

	entries, err := models.GetBOMEntriesForProduct(tx, ctx, businessId, product.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(entries) == 0 {
		// no ingredients defined: the line fails without touching stock
		if serr := models.SetOrderLineDeductionStatus(tx, line, models.DeductionStatusFailed); serr != nil {
			tx.Rollback()
			return nil, serr
		}
		result.Status = models.DeductionStatusFailed
		result.Message = "product has no BOM ingredients defined"
		return &result, tx.Commit().Error
	}

	allDeducted := true
	for _, entry := range entries {
		needed := neededQuantity(line.Quantity, entry.RequiredQuantity)
		report := IngredientReport{
			BOMEntryId:  entry.ID,
			StockPoolId: entry.StockPoolId,
			NeededQty:   needed,
		}

		err := deductFromPool(tx, businessId, entry.StockPoolId, needed)
		switch {
		case err == nil:
			report.Outcome = models.IngredientOutcomeDeducted
		case errors.Is(err, utils.ErrorInsufficientStock):
			report.Outcome = models.IngredientOutcomeInsufficientStock
			report.Message = err.Error()
			allDeducted = false
		case errors.Is(err, utils.ErrorConcurrencyConflict):
			report.Outcome = models.IngredientOutcomeConflict
			report.Message = err.Error()
			allDeducted = false
		default:
			config.LogError(logger, "consumptionWorkflow", "DeductOrderLine", "deductFromPool", report, err)
			report.Outcome = models.IngredientOutcomeError
			report.Message = err.Error()
			allDeducted = false
		}
		result.Ingredients = append(result.Ingredients, report)
	}

	next := models.DeductionStatusCompleted
	if !allDeducted {
		next = models.DeductionStatusFailed
	}
	// partial application is committed on FAILED too; the report records it
	if err := models.SetOrderLineDeductionStatus(tx, line, next); err != nil {
		tx.Rollback()
		return nil, err
	}
	result.Status = next
	return &result, tx.Commit().Error
}

// deductFromPool runs one bounded read-compute-write cycle against a pool
// inside the caller's transaction. A concurrent writer bumps Version between
// the read and the conditional UPDATE, which then matches zero rows and
// counts as one failed attempt.
func deductFromPool(db *gorm.DB, businessId string, poolId int, needed int) error {
	if needed <= 0 {
		return nil
	}
	return retryOptimistic(DeductAttempts, func() error {
		view, err := models.ReadPoolQuantity(db, businessId, poolId)
		if err != nil {
			return err
		}
		if view.Quantity < needed {
			return utils.ErrorInsufficientStock
		}
		applied, err := models.ApplyStockPoolQuantityDelta(db, businessId, poolId, view.Version, -needed)
		if err != nil {
			return err
		}
		if !applied {
			return errCASConflict
		}
		return nil
	})
}

func addBackToPool(db *gorm.DB, businessId string, poolId int, qty int) error {
	if qty <= 0 {
		return nil
	}
	return retryOptimistic(DeductAttempts, func() error {
		view, err := models.ReadPoolQuantity(db, businessId, poolId)
		if err != nil {
			return err
		}
		applied, err := models.ApplyStockPoolQuantityDelta(db, businessId, poolId, view.Version, qty)
		if err != nil {
			return err
		}
		if !applied {
			return errCASConflict
		}
		return nil
	})
}

// RestoreOrderLine adds back the quantities a COMPLETED deduction consumed
// and moves the line to PENDING. Only valid for COMPLETED lines. The restore
// is all-or-nothing: if any ingredient fails the whole credit is rolled back
// and the line stays COMPLETED, so the caller can retry safely without
// over-crediting pools that already succeeded.
func RestoreOrderLine(ctx context.Context, logger *logrus.Logger, orderLineId int) (*DeductionResult, error) {

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

	line, err := models.GetOrderLineForUpdate(tx, ctx, businessId, orderLineId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if line.DeductionStatus != models.DeductionStatusCompleted {
		tx.Rollback()
		return nil, errors.New("only completed order lines can be restored")
	}

	product, err := models.ResolveProduct(tx, ctx, businessId, line.ProductId, line.ProductSku, line.ProductName)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	entries, err := models.GetBOMEntriesForProduct(tx, ctx, businessId, product.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result := DeductionResult{
		OrderLineId: line.ID,
		ProductId:   product.ID,
	}

	allRestored := true
	for _, entry := range entries {
		qty := neededQuantity(line.Quantity, entry.RequiredQuantity)
		report := IngredientReport{
			BOMEntryId:  entry.ID,
			StockPoolId: entry.StockPoolId,
			NeededQty:   qty,
		}

		err := addBackToPool(tx, businessId, entry.StockPoolId, qty)
		switch {
		case err == nil:
			report.Outcome = models.IngredientOutcomeRestored
		case errors.Is(err, utils.ErrorConcurrencyConflict):
			report.Outcome = models.IngredientOutcomeConflict
			report.Message = err.Error()
			allRestored = false
		default:
			config.LogError(logger, "consumptionWorkflow", "RestoreOrderLine", "addBackToPool", report, err)
			report.Outcome = models.IngredientOutcomeError
			report.Message = err.Error()
			allRestored = false
		}
		result.Ingredients = append(result.Ingredients, report)
	}

	if !allRestored {
		// nothing is credited on a partial failure; a retry re-runs cleanly
		tx.Rollback()
		result.Status = line.DeductionStatus
		return &result, nil
	}

	if err := models.SetOrderLineDeductionStatus(tx, line, models.DeductionStatusPending); err != nil {
		tx.Rollback()
		return nil, err
	}
	result.Status = line.DeductionStatus
	return &result, tx.Commit().Error
}

// CheckOrderLineAvailability is a read-only simulation of deduction: true
// only when every ingredient's current quantity covers the need. No mutation.
func CheckOrderLineAvailability(ctx context.Context, orderLineId int) (bool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return false, errors.New("business id is required")
	}

	db := config.GetDB()
	line, err := models.GetOrderLine(db, ctx, businessId, orderLineId)
	if err != nil {
		return false, err
	}

	product, err := models.ResolveProduct(db, ctx, businessId, line.ProductId, line.ProductSku, line.ProductName)
	if err != nil {
		return false, err
	}

	entries, err := models.GetBOMEntriesForProduct(db, ctx, businessId, product.ID)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}

	for _, entry := range entries {
		needed := neededQuantity(line.Quantity, entry.RequiredQuantity)
		if needed <= 0 {
			continue
		}
		view, err := models.ReadPoolQuantity(db, businessId, entry.StockPoolId)
		if err != nil {
			return false, err
		}
		if view.Quantity < needed {
			return false, nil
		}
	}
	return true, nil
}

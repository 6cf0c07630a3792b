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

// RecomputeProductCost refreshes the product's BOM cost caches and derived
// cost/margin from the current stock costs. Pure function of BOM + stock
// state: calling it twice with no intervening change yields identical output.
func RecomputeProductCost(ctx context.Context, logger *logrus.Logger, productId int) (*models.Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	product, err := recomputeProductCostTx(tx, ctx, businessId, productId)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "costWorkflow", "RecomputeProductCost", "recomputeProductCostTx", productId, err)
		return nil, err
	}
	return product, tx.Commit().Error
}

func recomputeProductCostTx(tx *gorm.DB, ctx context.Context, businessId string, productId int) (*models.Product, error) {

	var product models.Product
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessId, productId).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	entries, err := models.GetBOMEntriesForProduct(tx, ctx, businessId, productId)
	if err != nil {
		return nil, err
	}

	calculated := decimal.Zero
	for _, entry := range entries {
		var pool models.StockPool
		if err := tx.WithContext(ctx).
			Where("business_id = ? AND id = ?", businessId, entry.StockPoolId).
			First(&pool).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrorRecordNotFound
			}
			return nil, err
		}

		unitCost := pool.UnitCost()
		entryTotal := unitCost.Mul(entry.RequiredQuantity).Round(models.CostScale)
		if err := tx.Model(&models.BOMEntry{}).Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"cost_per_unit": unitCost,
				"total_cost":    entryTotal,
			}).Error; err != nil {
			return nil, err
		}
		calculated = calculated.Add(entryTotal)
	}
	calculated = calculated.Round(models.CostScale)

	// zero margin when no selling price has been set
	margin := decimal.Zero
	if product.SellingPrice.IsPositive() {
		margin = product.SellingPrice.Sub(calculated).Round(models.CostScale)
	}

	if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"calculated_cost": calculated,
			"profit_margin":   margin,
		}).Error; err != nil {
		return nil, err
	}

	product.CalculatedCost = calculated
	product.ProfitMargin = margin
	return &product, nil
}

// RecomputeAffectedByPool fans out a recompute to every product whose BOM
// references the pool. Invoked after bulk stock price changes.
func RecomputeAffectedByPool(ctx context.Context, logger *logrus.Logger, stockPoolId int) ([]int, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	productIds, err := models.GetProductIdsUsingPool(db, ctx, businessId, stockPoolId)
	if err != nil {
		return nil, err
	}

	recomputed := make([]int, 0, len(productIds))
	for _, productId := range productIds {
		if _, err := RecomputeProductCost(ctx, logger, productId); err != nil {
			return recomputed, err
		}
		recomputed = append(recomputed, productId)
	}
	return recomputed, nil
}

// ApplyStockPoolPricing updates a pool's live price fields and fans out the
// product cost recompute in one call. The first pricing freezes the import
// snapshot; edits after that never reach historical costing.
func ApplyStockPoolPricing(ctx context.Context, logger *logrus.Logger, stockPoolId int, input *models.StockPoolPricingInput) (*models.StockPool, []int, error) {
	pool, err := models.UpdateStockPoolPricing(ctx, stockPoolId, input)
	if err != nil {
		return nil, nil, err
	}
	recomputed, err := RecomputeAffectedByPool(ctx, logger, stockPoolId)
	if err != nil {
		return pool, recomputed, err
	}
	return pool, recomputed, nil
}

// BOM mutations must always be followed by a recompute; these wrappers keep
// the two steps together for callers.

func CreateBOMEntry(ctx context.Context, logger *logrus.Logger, input *models.NewBOMEntry) (*models.BOMEntry, error) {
	entry, err := models.CreateBOMEntry(ctx, input)
	if err != nil {
		return nil, err
	}
	if _, err := RecomputeProductCost(ctx, logger, entry.ProductId); err != nil {
		return entry, err
	}
	return entry, nil
}

func UpdateBOMEntry(ctx context.Context, logger *logrus.Logger, id int, input *models.NewBOMEntry) (*models.BOMEntry, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	before, err := utils.FetchModel[models.BOMEntry](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	entry, err := models.UpdateBOMEntry(ctx, id, input)
	if err != nil {
		return nil, err
	}
	// the entry may have moved to another product; recompute both sides
	if before.ProductId != entry.ProductId {
		if _, err := RecomputeProductCost(ctx, logger, before.ProductId); err != nil {
			return entry, err
		}
	}
	if _, err := RecomputeProductCost(ctx, logger, entry.ProductId); err != nil {
		return entry, err
	}
	return entry, nil
}

func DeleteBOMEntry(ctx context.Context, logger *logrus.Logger, id int) (*models.BOMEntry, error) {
	entry, err := models.DeleteBOMEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := RecomputeProductCost(ctx, logger, entry.ProductId); err != nil {
		return entry, err
	}
	return entry, nil
}

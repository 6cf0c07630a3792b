package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/utils"
	"gorm.io/gorm"
)

// BOMEntry (ingredient) is the required quantity of one stock pool needed to
// produce one unit of a product. CostPerUnit/TotalCost are caches refreshed
// by the cost propagation engine.
type BOMEntry struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	StockPoolId      int             `gorm:"index;not null" json:"stock_pool_id"`
	RequiredQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"required_quantity"`
	Unit             string          `gorm:"size:20" json:"unit"`
	CostPerUnit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_per_unit"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBOMEntry struct {
	ProductId        int             `json:"product_id" binding:"required"`
	StockPoolId      int             `json:"stock_pool_id" binding:"required"`
	RequiredQuantity decimal.Decimal `json:"required_quantity" binding:"required"`
	Unit             string          `json:"unit"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBOMEntry) validate(ctx context.Context, businessId string) error {
	if !input.RequiredQuantity.IsPositive() {
		return fmt.Errorf("%w: required quantity must be positive", utils.ErrorValidation)
	}
	if err := utils.ValidateResourceId[Product](ctx, businessId, input.ProductId); err != nil {
		return errors.New("product not found")
	}
	if err := utils.ValidateResourceId[StockPool](ctx, businessId, input.StockPoolId); err != nil {
		return errors.New("stock pool not found")
	}
	return nil
}

// CreateBOMEntry inserts an ingredient. The caller must recompute the
// product's cost afterwards (workflow.RecomputeProductCost).
func CreateBOMEntry(ctx context.Context, input *NewBOMEntry) (*BOMEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	entry := BOMEntry{
		BusinessId:       businessId,
		ProductId:        input.ProductId,
		StockPoolId:      input.StockPoolId,
		RequiredQuantity: input.RequiredQuantity,
		Unit:             input.Unit,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func UpdateBOMEntry(ctx context.Context, id int, input *NewBOMEntry) (*BOMEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	entry, err := utils.FetchModel[BOMEntry](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
		"ProductId":        input.ProductId,
		"StockPoolId":      input.StockPoolId,
		"RequiredQuantity": input.RequiredQuantity,
		"Unit":             input.Unit,
	}).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func DeleteBOMEntry(ctx context.Context, id int) (*BOMEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	entry, err := utils.FetchModel[BOMEntry](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func GetBOMEntriesForProduct(tx *gorm.DB, ctx context.Context, businessId string, productId int) ([]*BOMEntry, error) {
	var entries []*BOMEntry
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND product_id = ?", businessId, productId).
		Order("id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetProductIdsUsingPool lists products whose BOM references the pool.
// Used for cost-recompute fan-out and the forecast scan.
func GetProductIdsUsingPool(tx *gorm.DB, ctx context.Context, businessId string, stockPoolId int) ([]int, error) {
	var productIds []int
	if err := tx.WithContext(ctx).Model(&BOMEntry{}).
		Where("business_id = ? AND stock_pool_id = ?", businessId, stockPoolId).
		Distinct().
		Pluck("product_id", &productIds).Error; err != nil {
		return nil, err
	}
	return productIds, nil
}

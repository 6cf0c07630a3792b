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

// CostScale is the fixed decimal scale for all landed-cost arithmetic.
// Rounding is half-up (decimal.Round rounds half away from zero).
const CostScale = 2

// StockPool is a quantity-bearing inventory record with a variant-specific
// landed-cost formula. The IMPORTED variant prices in yuan and converts at
// ExchangeRate; the DOMESTIC variant is priced as a local total plus shipping.
//
// Quantity is guarded by optimistic locking: every quantity write goes through
// ApplyStockPoolQuantityDelta conditioned on Version being unchanged.
type StockPool struct {
	ID         int              `gorm:"primary_key" json:"id"`
	BusinessId string           `gorm:"index;not null" json:"business_id"`
	Name       string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Variant    StockPoolVariant `gorm:"type:enum('IMPORTED','DOMESTIC');default:IMPORTED" json:"variant"`
	Status     StockPoolStatus  `gorm:"type:enum('ACTIVE','INACTIVE');default:ACTIVE" json:"status"`
	Quantity   int              `gorm:"not null;default:0" json:"quantity"`
	Version    int              `gorm:"not null;default:0" json:"version"`
	Unit       string           `gorm:"size:20" json:"unit"`
	// back-reference to the lot this pool arrived with (not ownership)
	StockLotId int `gorm:"index;default:0" json:"stock_lot_id"`

	// IMPORTED variant cost fields
	UnitPriceYuan       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_yuan"`
	ExchangeRate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"exchange_rate"`
	ShippingWithinChina decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_within_china"`
	ShippingChinaToThai decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_china_to_thai"`

	// DOMESTIC variant cost fields
	PriceTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_total"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_cost"`

	// shared optional buffer
	HasBuffer     *bool           `gorm:"not null;default:false" json:"has_buffer"`
	BufferPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"buffer_percent"`

	// Frozen at import time; never overwritten by recalculation paths.
	// Historical order costing reads these, not the live price fields.
	UnitCostAtImport  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_at_import"`
	TotalCostAtImport decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost_at_import"`

	// reorder recommendation parameters
	SafetyStockDays int `gorm:"not null;default:7" json:"safety_stock_days"`
	LeadTimeDays    int `gorm:"not null;default:14" json:"lead_time_days"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TotalLandedCost returns the frozen import snapshot when present, otherwise
// computes from the current cost fields. Missing optional inputs count as
// zero; this never errors because cost display must always produce a value.
func (p *StockPool) TotalLandedCost() decimal.Decimal {
	if p.TotalCostAtImport.IsPositive() {
		return p.TotalCostAtImport
	}
	return p.computeTotalLandedCost()
}

func (p *StockPool) computeTotalLandedCost() decimal.Decimal {
	var total decimal.Decimal
	switch p.Variant {
	case StockPoolVariantImported:
		// (unit price x qty + in-country shipping) x rate + cross-border shipping
		goods := p.UnitPriceYuan.Mul(decimal.NewFromInt(int64(p.Quantity)))
		total = goods.Add(p.ShippingWithinChina).Mul(p.ExchangeRate).Add(p.ShippingChinaToThai)
	case StockPoolVariantDomestic:
		total = p.PriceTotal.Add(p.ShippingCost)
	default:
		return decimal.Zero
	}
	if p.HasBuffer != nil && *p.HasBuffer && p.BufferPercent.IsPositive() {
		total = total.Add(total.Mul(p.BufferPercent).Div(decimal.NewFromInt(100)))
	}
	return total.Round(CostScale)
}

// UnitCost returns the frozen import snapshot when present and positive,
// else the current total landed cost divided by quantity on hand.
func (p *StockPool) UnitCost() decimal.Decimal {
	if p.UnitCostAtImport.IsPositive() {
		return p.UnitCostAtImport
	}
	if p.Quantity <= 0 {
		return decimal.Zero
	}
	total := p.computeTotalLandedCost()
	if !total.IsPositive() {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(p.Quantity)), CostScale)
}

// FreezeImportCost records the import-time cost snapshot exactly once.
// Calling it again after the snapshot is set is a no-op (idempotent), so a
// later price edit can never leak into historical costing.
func (p *StockPool) FreezeImportCost(tx *gorm.DB) error {
	if p.TotalCostAtImport.IsPositive() || p.UnitCostAtImport.IsPositive() {
		return nil
	}
	total := p.computeTotalLandedCost()
	if !total.IsPositive() || p.Quantity <= 0 {
		return nil
	}
	unit := total.DivRound(decimal.NewFromInt(int64(p.Quantity)), CostScale)
	if err := tx.Model(&StockPool{}).
		Where("id = ? AND total_cost_at_import = 0 AND unit_cost_at_import = 0", p.ID).
		Updates(map[string]interface{}{
			"total_cost_at_import": total,
			"unit_cost_at_import":  unit,
		}).Error; err != nil {
		return err
	}
	p.TotalCostAtImport = total
	p.UnitCostAtImport = unit
	return nil
}

type NewStockPool struct {
	Name    string           `json:"name" binding:"required"`
	Variant StockPoolVariant `json:"variant" binding:"required"`
	Unit    string           `json:"unit"`

	Quantity   int `json:"quantity"`
	StockLotId int `json:"stock_lot_id"`

	UnitPriceYuan       decimal.Decimal `json:"unit_price_yuan"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"`
	ShippingWithinChina decimal.Decimal `json:"shipping_within_china"`
	ShippingChinaToThai decimal.Decimal `json:"shipping_china_to_thai"`

	PriceTotal   decimal.Decimal `json:"price_total"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`

	HasBuffer     *bool           `json:"has_buffer"`
	BufferPercent decimal.Decimal `json:"buffer_percent"`

	SafetyStockDays int `json:"safety_stock_days"`
	LeadTimeDays    int `json:"lead_time_days"`
}

func (input *NewStockPool) validate(ctx context.Context, businessId string) error {
	if input.Variant != StockPoolVariantImported && input.Variant != StockPoolVariantDomestic {
		return fmt.Errorf("%w: invalid stock pool variant", utils.ErrorValidation)
	}
	if input.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", utils.ErrorValidation)
	}
	if input.StockLotId != 0 {
		if err := utils.ValidateResourceId[StockLot](ctx, businessId, input.StockLotId); err != nil {
			return errors.New("stock lot not found")
		}
	}
	return nil
}

func CreateStockPool(ctx context.Context, input *NewStockPool) (*StockPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	safetyDays := input.SafetyStockDays
	if safetyDays <= 0 {
		safetyDays = 7
	}
	leadDays := input.LeadTimeDays
	if leadDays <= 0 {
		leadDays = 14
	}
	hasBuffer := input.HasBuffer
	if hasBuffer == nil {
		hasBuffer = utils.NewFalse()
	}

	pool := StockPool{
		BusinessId:          businessId,
		Name:                input.Name,
		Variant:             input.Variant,
		Status:              StockPoolStatusActive,
		Quantity:            input.Quantity,
		Unit:                input.Unit,
		StockLotId:          input.StockLotId,
		UnitPriceYuan:       input.UnitPriceYuan,
		ExchangeRate:        input.ExchangeRate,
		ShippingWithinChina: input.ShippingWithinChina,
		ShippingChinaToThai: input.ShippingChinaToThai,
		PriceTotal:          input.PriceTotal,
		ShippingCost:        input.ShippingCost,
		HasBuffer:           hasBuffer,
		BufferPercent:       input.BufferPercent,
		SafetyStockDays:     safetyDays,
		LeadTimeDays:        leadDays,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&pool).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// Import-time snapshot: later price edits must not change historical costing.
	if err := pool.FreezeImportCost(tx); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &pool, tx.Commit().Error
}

// UpdateStockPoolPricing edits the live cost fields. The first pricing that
// yields a positive landed cost freezes the *AtImport snapshot; after that the
// snapshot columns are never touched here. Callers must fan out a product
// cost recompute afterwards (workflow.RecomputeAffectedByPool).
type StockPoolPricingInput struct {
	UnitPriceYuan       *decimal.Decimal `json:"unit_price_yuan"`
	ExchangeRate        *decimal.Decimal `json:"exchange_rate"`
	ShippingWithinChina *decimal.Decimal `json:"shipping_within_china"`
	ShippingChinaToThai *decimal.Decimal `json:"shipping_china_to_thai"`
	PriceTotal          *decimal.Decimal `json:"price_total"`
	ShippingCost        *decimal.Decimal `json:"shipping_cost"`
	HasBuffer           *bool            `json:"has_buffer"`
	BufferPercent       *decimal.Decimal `json:"buffer_percent"`
	SafetyStockDays     *int             `json:"safety_stock_days"`
	LeadTimeDays        *int             `json:"lead_time_days"`
}

func UpdateStockPoolPricing(ctx context.Context, id int, input *StockPoolPricingInput) (*StockPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	pool, err := utils.FetchModel[StockPool](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.UnitPriceYuan != nil {
		updates["UnitPriceYuan"] = *input.UnitPriceYuan
	}
	if input.ExchangeRate != nil {
		updates["ExchangeRate"] = *input.ExchangeRate
	}
	if input.ShippingWithinChina != nil {
		updates["ShippingWithinChina"] = *input.ShippingWithinChina
	}
	if input.ShippingChinaToThai != nil {
		updates["ShippingChinaToThai"] = *input.ShippingChinaToThai
	}
	if input.PriceTotal != nil {
		updates["PriceTotal"] = *input.PriceTotal
	}
	if input.ShippingCost != nil {
		updates["ShippingCost"] = *input.ShippingCost
	}
	if input.HasBuffer != nil {
		updates["HasBuffer"] = *input.HasBuffer
	}
	if input.BufferPercent != nil {
		updates["BufferPercent"] = *input.BufferPercent
	}
	if input.SafetyStockDays != nil && *input.SafetyStockDays > 0 {
		updates["SafetyStockDays"] = *input.SafetyStockDays
	}
	if input.LeadTimeDays != nil && *input.LeadTimeDays > 0 {
		updates["LeadTimeDays"] = *input.LeadTimeDays
	}
	if len(updates) == 0 {
		return pool, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(pool).Updates(updates).Error; err != nil {
		return nil, err
	}
	// a pool created unpriced freezes on its first successful pricing; the
	// conditional write inside FreezeImportCost makes repeat calls no-ops
	pool, err = utils.FetchModel[StockPool](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := pool.FreezeImportCost(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	// reorder settings are cached per pool; drop the stale entry
	_ = config.RemoveRedisKey(reorderSettingsRedisKey(businessId, id))
	return pool, nil
}

func SetStockPoolStatus(ctx context.Context, id int, status StockPoolStatus) (*StockPool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if status != StockPoolStatusActive && status != StockPoolStatusInactive {
		return nil, errors.New("invalid stock pool status")
	}

	pool, err := utils.FetchModel[StockPool](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(pool).Update("Status", status).Error; err != nil {
		return nil, err
	}
	return pool, nil
}

func GetStockPool(ctx context.Context, id int) (*StockPool, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[StockPool](ctx, businessId, id)
}

func GetActiveStockPools(ctx context.Context) ([]*StockPool, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var pools []*StockPool
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessId, StockPoolStatusActive).
		Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func GetStockPoolsByLot(tx *gorm.DB, ctx context.Context, businessId string, lotId int) ([]*StockPool, error) {
	var pools []*StockPool
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND stock_lot_id = ?", businessId, lotId).
		Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

// PoolQuantityView is the minimal read used by the deduction read-compute-write
// cycle: quantity plus the version marker the conditional write checks against.
type PoolQuantityView struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
	Version  int `json:"version"`
}

func ReadPoolQuantity(tx *gorm.DB, businessId string, poolId int) (*PoolQuantityView, error) {
	var view PoolQuantityView
	err := tx.Model(&StockPool{}).
		Select("id", "quantity", "version").
		Where("business_id = ? AND id = ?", businessId, poolId).
		First(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &view, nil
}

// ApplyStockPoolQuantityDelta performs the compare-and-swap quantity write:
// the update lands only if Version still matches what the caller read.
// Returns false (no error) when another writer got there first.
func ApplyStockPoolQuantityDelta(tx *gorm.DB, businessId string, poolId int, expectedVersion int, delta int) (bool, error) {
	res := tx.Model(&StockPool{}).
		Where("business_id = ? AND id = ? AND version = ?", businessId, poolId, expectedVersion).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", delta),
			"version":  gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func reorderSettingsRedisKey(businessId string, poolId int) string {
	return fmt.Sprintf("reorderSettings:%s:%d", businessId, poolId)
}

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

// Product is a finished good assembled from BOM ingredients.
// CalculatedCost and ProfitMargin are derived by the cost propagation engine
// and must not be written by CRUD paths.
type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null;uniqueIndex:idx_products_business_sku,priority:1" json:"business_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku            string          `gorm:"size:100;not null;uniqueIndex:idx_products_business_sku,priority:2" json:"sku" binding:"required"`
	Description    string          `gorm:"type:text" json:"description"`
	SellingPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	CalculatedCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"calculated_cost"`
	ProfitMargin   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"profit_margin"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name         string          `json:"name" binding:"required"`
	Sku          string          `json:"sku" binding:"required"`
	Description  string          `json:"description"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, businessId, "sku", input.Sku, id); err != nil {
		return err
	}
	if input.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: selling price cannot be negative", utils.ErrorValidation)
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	product := Product{
		BusinessId:   businessId,
		Name:         input.Name,
		Sku:          input.Sku,
		Description:  input.Description,
		SellingPrice: input.SellingPrice,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		// the pre-insert check is racy; the unique index catches the loser
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("sku already exists")
		}
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// derived cost/margin stay untouched; the cost engine owns them
	if err := db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Sku":          input.Sku,
		"Description":  input.Description,
		"SellingPrice": input.SellingPrice,
	}).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Product](ctx, businessId, id)
}

// ResolveProduct locates a product by id first, then SKU, then name.
// Returns ErrorRecordNotFound when nothing matches.
func ResolveProduct(tx *gorm.DB, ctx context.Context, businessId string, id int, sku string, name string) (*Product, error) {

	var product Product
	if id > 0 {
		err := tx.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if sku != "" {
		err := tx.WithContext(ctx).Where("business_id = ? AND sku = ?", businessId, sku).First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if name != "" {
		err := tx.WithContext(ctx).Where("business_id = ? AND name = ?", businessId, name).First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, utils.ErrorRecordNotFound
}

package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order records are created by manual entry or import parsers (out of scope
// here); the engine consumes them for deduction and forecasting.
type Order struct {
	ID          int         `gorm:"primary_key" json:"id"`
	BusinessId  string      `gorm:"index;not null" json:"business_id"`
	OrderNumber string      `gorm:"index;size:100" json:"order_number"`
	Customer    string      `gorm:"size:100" json:"customer"`
	OrderDate   time.Time   `gorm:"index;not null" json:"order_date"`
	Status      OrderStatus `gorm:"type:enum('PENDING','CONFIRMED','COMPLETED','CANCELLED','RETURNED');default:PENDING" json:"status"`
	Lines       []OrderLine `gorm:"foreignkey:OrderId" json:"lines"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderLine struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	OrderId    int    `gorm:"index;not null" json:"order_id"`
	// product resolution inputs, tried in order: id, sku, name
	ProductId       int             `gorm:"index;default:0" json:"product_id"`
	ProductSku      string          `gorm:"size:100" json:"product_sku"`
	ProductName     string          `gorm:"size:100" json:"product_name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	DeductionStatus DeductionStatus `gorm:"type:enum('PENDING','COMPLETED','FAILED','CANCELLED');default:PENDING" json:"deduction_status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// allowed deduction-status edges (explicit restore moves COMPLETED back to PENDING)
var deductionTransitions = map[DeductionStatus][]DeductionStatus{
	DeductionStatusPending:   {DeductionStatusCompleted, DeductionStatusFailed, DeductionStatusCancelled},
	DeductionStatusCompleted: {DeductionStatusPending, DeductionStatusCancelled},
	DeductionStatusFailed:    {DeductionStatusPending, DeductionStatusCancelled},
	DeductionStatusCancelled: {},
}

func (ol *OrderLine) CanTransitionTo(next DeductionStatus) bool {
	for _, allowed := range deductionTransitions[ol.DeductionStatus] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SetOrderLineDeductionStatus moves the line along the state machine,
// rejecting edges the machine does not have. The write is conditioned on the
// status the caller read; a concurrent writer makes it match zero rows and
// the caller gets a conflict instead of a silently clobbered transition.
func SetOrderLineDeductionStatus(tx *gorm.DB, line *OrderLine, next DeductionStatus) error {
	if !line.CanTransitionTo(next) {
		return errors.New("invalid deduction status transition from " + string(line.DeductionStatus) + " to " + string(next))
	}
	res := tx.Model(&OrderLine{}).
		Where("id = ? AND deduction_status = ?", line.ID, line.DeductionStatus).
		Update("deduction_status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorConcurrencyConflict
	}
	line.DeductionStatus = next
	return nil
}

// GetOrderLineForUpdate locks the line row for the duration of the caller's
// transaction. Concurrent deduction or restore attempts on the same line
// serialize here, so only the first sees the claimable status.
func GetOrderLineForUpdate(tx *gorm.DB, ctx context.Context, businessId string, orderLineId int) (*OrderLine, error) {
	var line OrderLine
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, orderLineId).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &line, nil
}

func GetOrderLine(tx *gorm.DB, ctx context.Context, businessId string, orderLineId int) (*OrderLine, error) {
	var line OrderLine
	err := tx.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessId, orderLineId).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &line, nil
}

// CancelOrder cancels the order and all its lines. Line cancellation is
// independent of deduction outcome; already-deducted stock is not restored
// here (callers restore COMPLETED lines first if they want the stock back).
func CancelOrder(ctx context.Context, orderId int) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	order, err := utils.FetchModel[Order](ctx, businessId, orderId, "Lines")
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCancelled {
		return order, nil
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&Order{}).Where("id = ?", order.ID).
		Update("status", OrderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&OrderLine{}).
		Where("order_id = ? AND deduction_status <> ?", order.ID, DeductionStatusCancelled).
		Update("deduction_status", DeductionStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	order.Status = OrderStatusCancelled
	for i := range order.Lines {
		order.Lines[i].DeductionStatus = DeductionStatusCancelled
	}
	return order, nil
}

type NewOrder struct {
	OrderNumber string         `json:"order_number"`
	Customer    string         `json:"customer"`
	OrderDate   time.Time      `json:"order_date"`
	Lines       []NewOrderLine `json:"lines" binding:"required,dive"`
}

type NewOrderLine struct {
	ProductId   int    `json:"product_id"`
	ProductSku  string `json:"product_sku"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity" binding:"required"`
}

func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: order requires at least one line", utils.ErrorValidation)
	}
	for _, l := range input.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: order line quantity must be positive", utils.ErrorValidation)
		}
		if l.ProductId == 0 && l.ProductSku == "" && l.ProductName == "" {
			return nil, fmt.Errorf("%w: order line requires a product reference", utils.ErrorValidation)
		}
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	order := Order{
		BusinessId:  businessId,
		OrderNumber: input.OrderNumber,
		Customer:    input.Customer,
		OrderDate:   orderDate,
		Status:      OrderStatusPending,
	}
	for _, l := range input.Lines {
		order.Lines = append(order.Lines, OrderLine{
			BusinessId:      businessId,
			ProductId:       l.ProductId,
			ProductSku:      l.ProductSku,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			DeductionStatus: DeductionStatusPending,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

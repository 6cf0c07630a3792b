package models

import "errors"

type StockPoolVariant string

const (
	StockPoolVariantImported StockPoolVariant = "IMPORTED"
	StockPoolVariantDomestic StockPoolVariant = "DOMESTIC"
)

func (v *StockPoolVariant) Parse(str string) error {
	switch str {
	case "IMPORTED":
		*v = StockPoolVariantImported
	case "DOMESTIC":
		*v = StockPoolVariantDomestic
	default:
		return errors.New("invalid stock pool variant")
	}
	return nil
}

type StockPoolStatus string

const (
	StockPoolStatusActive   StockPoolStatus = "ACTIVE"
	StockPoolStatusInactive StockPoolStatus = "INACTIVE"
)

type StockLotStatus string

const (
	StockLotStatusPending   StockLotStatus = "PENDING"
	StockLotStatusArrived   StockLotStatus = "ARRIVED"
	StockLotStatusCompleted StockLotStatus = "COMPLETED"
	StockLotStatusCancelled StockLotStatus = "CANCELLED"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
)

// DeductionStatus is the per-order-line stock deduction state machine:
// PENDING -> COMPLETED (all ingredients deducted)
// PENDING -> FAILED    (any ingredient insufficient / error)
// COMPLETED -> PENDING (explicit restore only)
// CANCELLED is reachable only through explicit order cancellation.
type DeductionStatus string

const (
	DeductionStatusPending   DeductionStatus = "PENDING"
	DeductionStatusCompleted DeductionStatus = "COMPLETED"
	DeductionStatusFailed    DeductionStatus = "FAILED"
	DeductionStatusCancelled DeductionStatus = "CANCELLED"
)

type UrgencyLevel string

const (
	UrgencyLevelLow      UrgencyLevel = "LOW"
	UrgencyLevelMedium   UrgencyLevel = "MEDIUM"
	UrgencyLevelHigh     UrgencyLevel = "HIGH"
	UrgencyLevelCritical UrgencyLevel = "CRITICAL"
)

// IngredientOutcome is the per-ingredient result recorded in a deduction
// or restore report. The consumption engine never swallows a failure: every
// ingredient gets exactly one outcome.
type IngredientOutcome string

const (
	IngredientOutcomeDeducted          IngredientOutcome = "DEDUCTED"
	IngredientOutcomeRestored          IngredientOutcome = "RESTORED"
	IngredientOutcomeInsufficientStock IngredientOutcome = "INSUFFICIENT_STOCK"
	IngredientOutcomeConflict          IngredientOutcome = "CONFLICT"
	IngredientOutcomeError             IngredientOutcome = "ERROR"
)

type FinancialReferenceType string

const (
	FinancialReferenceTypeStockLot FinancialReferenceType = "SL"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

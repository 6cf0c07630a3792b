package models

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/utils"
)

func TestDeductionStatusTransitions(t *testing.T) {
	cases := []struct {
		from    DeductionStatus
		to      DeductionStatus
		allowed bool
	}{
		{DeductionStatusPending, DeductionStatusCompleted, true},
		{DeductionStatusPending, DeductionStatusFailed, true},
		{DeductionStatusPending, DeductionStatusCancelled, true},
		{DeductionStatusCompleted, DeductionStatusPending, true}, // restore
		{DeductionStatusCompleted, DeductionStatusCancelled, true},
		{DeductionStatusCompleted, DeductionStatusFailed, false},
		{DeductionStatusFailed, DeductionStatusPending, true},
		{DeductionStatusFailed, DeductionStatusCancelled, true},
		{DeductionStatusFailed, DeductionStatusCompleted, false},
		// CANCELLED is terminal
		{DeductionStatusCancelled, DeductionStatusPending, false},
		{DeductionStatusCancelled, DeductionStatusCompleted, false},
		{DeductionStatusCancelled, DeductionStatusFailed, false},
	}

	for _, tc := range cases {
		line := OrderLine{DeductionStatus: tc.from}
		if got := line.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: CanTransitionTo = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStockPoolVariantParse(t *testing.T) {
	var v StockPoolVariant
	if err := v.Parse("IMPORTED"); err != nil || v != StockPoolVariantImported {
		t.Fatalf("Parse(IMPORTED) = %v, %v", v, err)
	}
	if err := v.Parse("DOMESTIC"); err != nil || v != StockPoolVariantDomestic {
		t.Fatalf("Parse(DOMESTIC) = %v, %v", v, err)
	}
	if err := v.Parse("imported"); err == nil {
		t.Fatal("Parse(imported) should reject lowercase")
	}
}

func TestValidationFailuresWrapSentinel(t *testing.T) {
	ctx := utils.SetBusinessIdInContext(context.Background(), "biz-validate")

	if _, err := CreateOrder(ctx, &NewOrder{}); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("CreateOrder with no lines: err = %v, want ErrorValidation", err)
	}
	if _, err := CreateOrder(ctx, &NewOrder{
		Lines: []NewOrderLine{{ProductId: 1, Quantity: 0}},
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("CreateOrder with zero quantity: err = %v, want ErrorValidation", err)
	}
	if _, err := CreateOrder(ctx, &NewOrder{
		Lines: []NewOrderLine{{Quantity: 2}},
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("CreateOrder without product reference: err = %v, want ErrorValidation", err)
	}

	// rejected before any lookup, so no database is needed here
	entry := NewBOMEntry{ProductId: 1, StockPoolId: 1, RequiredQuantity: decimal.Zero}
	if err := entry.validate(ctx, "biz-validate"); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("BOM entry with zero required quantity: err = %v, want ErrorValidation", err)
	}
}

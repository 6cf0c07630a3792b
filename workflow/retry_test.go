package workflow

import (
	"errors"
	"testing"

	"github.com/siamcraft/mfginv_backend/utils"
)

func TestRetryOptimistic_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryOptimistic(DeductAttempts, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryOptimistic_RetriesOnceOnConflict(t *testing.T) {
	calls := 0
	err := retryOptimistic(DeductAttempts, func() error {
		calls++
		if calls == 1 {
			return errCASConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryOptimistic_ExhaustionSurfacesConflict(t *testing.T) {
	calls := 0
	err := retryOptimistic(DeductAttempts, func() error {
		calls++
		return errCASConflict
	})
	if !errors.Is(err, utils.ErrorConcurrencyConflict) {
		t.Fatalf("err = %v, want ErrorConcurrencyConflict", err)
	}
	if calls != DeductAttempts {
		t.Fatalf("calls = %d, want %d", calls, DeductAttempts)
	}
}

func TestRetryOptimistic_NonConflictErrorAbortsImmediately(t *testing.T) {
	calls := 0
	err := retryOptimistic(DeductAttempts, func() error {
		calls++
		return utils.ErrorInsufficientStock
	})
	if !errors.Is(err, utils.ErrorInsufficientStock) {
		t.Fatalf("err = %v, want ErrorInsufficientStock", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on non-conflict errors)", calls)
	}
}

package workflow

import (
	"errors"

	"github.com/siamcraft/mfginv_backend/utils"
)

// DeductAttempts bounds the optimistic read-compute-write cycle on stock
// quantity. Two total attempts; after that the conflict is surfaced to the
// caller instead of blocking or silently dropping the operation.
const DeductAttempts = 2

// errCASConflict signals that the conditional quantity write lost the race
// and the whole read-compute-write cycle should be retried.
var errCASConflict = errors.New("stock version changed")

// retryOptimistic runs the read-compute-write cycle up to attempts times,
// retrying only on errCASConflict. Any other error (including insufficient
// stock) aborts immediately. When the bound is exhausted it returns
// utils.ErrorConcurrencyConflict.
func retryOptimistic(attempts int, cycle func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = cycle()
		if err == nil || !errors.Is(err, errCASConflict) {
			return err
		}
	}
	return utils.ErrorConcurrencyConflict
}

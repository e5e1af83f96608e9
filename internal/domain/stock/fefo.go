package stock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStock pairs a batch with its available on-hand quantity at one location
type BatchStock struct {
	Batch     *Batch
	Available decimal.Decimal
}

// Allocation is one line of an allocation plan: draw Quantity from Batch
type Allocation struct {
	Batch    *Batch
	Quantity decimal.Decimal
}

// AllocateFEFO selects batches to cover the needed quantity in
// first-expired-first-out order. Batches without an expiry date sort last;
// ties on expiry break by received date ascending, then batch ID, so plans
// are reproducible. Expired batches are excluded unless allowExpired is set.
//
// The returned plan is advisory: callers must re-validate it against live
// on-hand rows inside the transaction that commits the movements.
func AllocateFEFO(rows []BatchStock, needed decimal.Decimal, asOf time.Time, allowExpired bool) ([]Allocation, error) {
	if needed.IsZero() || needed.IsNegative() {
		return nil, NewInvalidMovementError("allocation quantity must be positive")
	}

	available := make([]BatchStock, 0, len(rows))
	availableTotal := decimal.Zero
	availableNonExpired := decimal.Zero
	for _, row := range rows {
		if row.Batch == nil || !row.Available.IsPositive() {
			continue
		}
		availableTotal = availableTotal.Add(row.Available)
		expired := row.Batch.IsExpired(asOf)
		if !expired {
			availableNonExpired = availableNonExpired.Add(row.Available)
		}
		if expired && !allowExpired {
			continue
		}
		available = append(available, row)
	}

	usable := availableNonExpired
	if allowExpired {
		usable = availableTotal
	}
	if usable.LessThan(needed) {
		if availableTotal.GreaterThanOrEqual(needed) {
			return nil, NewExpiredBatchOnlyError(availableNonExpired, needed)
		}
		return nil, NewInsufficientStockError(availableTotal, needed)
	}

	SortFEFO(available)

	plan := make([]Allocation, 0, len(available))
	remaining := needed
	for _, row := range available {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, row.Available)
		plan = append(plan, Allocation{Batch: row.Batch, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return plan, nil
}

// SortFEFO orders batch stocks by expiry date ascending with nil expiry last,
// breaking ties by received date ascending, then by batch ID.
func SortFEFO(rows []BatchStock) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Batch, rows[j].Batch

		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			// fall through to tie-break
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}

		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

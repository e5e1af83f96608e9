package stock

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStockState describes a sale's relationship to the stock ledger.
// Legal transitions: not-consumed -> consumed -> partially-refunded (repeatable)
// -> fully-refunded. Fully-refunded is terminal.
type SaleStockState string

const (
	SaleNotConsumed       SaleStockState = "NOT_CONSUMED"
	SaleConsumed          SaleStockState = "CONSUMED"
	SalePartiallyRefunded SaleStockState = "PARTIALLY_REFUNDED"
	SaleFullyRefunded     SaleStockState = "FULLY_REFUNDED"
)

// DeriveSaleStockState computes a sale's stock state from its ledger
// movements: the outbound consumptions referencing the sale and the inbound
// refund reversals referencing it.
func DeriveSaleStockState(consumptions, refunds []*Movement) SaleStockState {
	consumed := decimal.Zero
	for _, m := range consumptions {
		consumed = consumed.Add(m.Quantity.Neg())
	}
	if !consumed.IsPositive() {
		return SaleNotConsumed
	}

	refunded := decimal.Zero
	for _, m := range refunds {
		refunded = refunded.Add(m.Quantity)
	}
	switch {
	case refunded.IsZero():
		return SaleConsumed
	case refunded.GreaterThanOrEqual(consumed):
		return SaleFullyRefunded
	default:
		return SalePartiallyRefunded
	}
}

// RefundableQuantity returns how much of a product's consumption for a sale
// has been consumed and how much already refunded. The refundable remainder
// is consumed minus refunded.
func RefundableQuantity(consumptions, refunds []*Movement, productID uuid.UUID) (consumed, refunded decimal.Decimal) {
	consumed, refunded = decimal.Zero, decimal.Zero
	for _, m := range consumptions {
		if m.ProductID == productID {
			consumed = consumed.Add(m.Quantity.Neg())
		}
	}
	for _, m := range refunds {
		if m.ProductID == productID {
			refunded = refunded.Add(m.Quantity)
		}
	}
	return consumed, refunded
}

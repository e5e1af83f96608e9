package stock

import (
	"time"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLocationCommand creates a new storage location
type CreateLocationCommand struct {
	Code     string
	Name     string
	Category stock.LocationCategory
}

// CreateBatchCommand registers a batch for a product
type CreateBatchCommand struct {
	ProductID   uuid.UUID
	BatchNumber string
	ExpiryDate  *time.Time
	ReceivedAt  time.Time
	Supplier    string
	QCNotes     string
}

// ReceiveStockCommand registers a batch and books its inbound purchase
// movement in one transaction
type ReceiveStockCommand struct {
	CreateBatchCommand
	LocationID  uuid.UUID
	Quantity    decimal.Decimal
	ReferenceID string
	Actor       string
}

// RecordMovementCommand appends one movement to the ledger
type RecordMovementCommand struct {
	ProductID     uuid.UUID
	LocationID    uuid.UUID
	BatchID       *uuid.UUID
	Kind          stock.MovementKind
	Quantity      decimal.Decimal
	ReferenceType stock.ReferenceType
	ReferenceID   string
	Reason        string
	Actor         string
	AllowExpired  bool
}

// AdjustStockCommand books a manual signed adjustment with a reason
type AdjustStockCommand struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	BatchID    *uuid.UUID
	// Quantity is signed: positive adjusts in, negative adjusts out
	Quantity decimal.Decimal
	Reason   string
	Actor    string
}

// TransferStockCommand moves quantity of one batch between two locations,
// committed as an outbound movement at the source plus an inbound movement at
// the destination in one transaction
type TransferStockCommand struct {
	ProductID      uuid.UUID
	SourceLocation uuid.UUID
	DestLocation   uuid.UUID
	BatchID        uuid.UUID
	Quantity       decimal.Decimal
	Reason         string
	Actor          string
	AllowExpired   bool
}

// SaleLine is one product/quantity pair of a sale
type SaleLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// ConsumeForSaleCommand consumes stock for a paid sale
type ConsumeForSaleCommand struct {
	SaleID       string
	LocationID   uuid.UUID
	Lines        []SaleLine
	AllowExpired bool
	Actor        string
}

// ConsumeResult is the outcome of a consumption request
type ConsumeResult struct {
	Movements []*stock.Movement
	// Replayed is true when the sale was already consumed and the existing
	// movements were returned unchanged
	Replayed bool
	State    stock.SaleStockState
}

// RefundStrategy selects full or partial reversal
type RefundStrategy string

const (
	RefundFull    RefundStrategy = "FULL"
	RefundPartial RefundStrategy = "PARTIAL"
)

// RefundStockCommand reverses consumed stock for a sale
type RefundStockCommand struct {
	SaleID   string
	Strategy RefundStrategy
	// Lines are required for partial refunds and ignored for full refunds
	Lines          []SaleLine
	IdempotencyKey string
	Reason         string
	Actor          string
}

// RefundResult is the outcome of a refund request
type RefundResult struct {
	Movements []*stock.Movement
	Replayed  bool
	State     stock.SaleStockState
}

// OnHandByLocation is a per-location slice of a product summary
type OnHandByLocation struct {
	LocationID uuid.UUID
	Quantity   decimal.Decimal
}

// OnHandByBatch is a per-batch slice of a product summary
type OnHandByBatch struct {
	BatchID     uuid.UUID
	BatchNumber string
	ExpiryDate  *time.Time
	Expired     bool
	Quantity    decimal.Decimal
}

// OnHandSummary aggregates a product's stock position
type OnHandSummary struct {
	ProductID        uuid.UUID
	Total            decimal.Decimal
	ByLocation       []OnHandByLocation
	ByBatch          []OnHandByBatch
	ExpiredWithStock []OnHandByBatch
}

// ExpiringBatch is one line of the expiry lookahead
type ExpiringBatch struct {
	ProductID   uuid.UUID
	LocationID  uuid.UUID
	BatchID     uuid.UUID
	BatchNumber string
	ExpiryDate  time.Time
	Quantity    decimal.Decimal
	DaysLeft    int
}

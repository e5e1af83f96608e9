package handler

import (
	"time"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/dermaclinic/backend/internal/domain/stock"
)

// LocationResponse represents a storage location in API responses
type LocationResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toLocationResponse(l *stock.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID.String(),
		Code:      l.Code,
		Name:      l.Name,
		Category:  string(l.Category),
		Active:    l.Active,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
		UpdatedAt: l.UpdatedAt.Format(time.RFC3339),
	}
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	BatchNumber string  `json:"batch_number"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
	Expired     bool    `json:"expired"`
	ReceivedAt  string  `json:"received_at"`
	Supplier    string  `json:"supplier,omitempty"`
	QCNotes     string  `json:"qc_notes,omitempty"`
}

func toBatchResponse(b *stock.Batch) BatchResponse {
	resp := BatchResponse{
		ID:          b.ID.String(),
		ProductID:   b.ProductID.String(),
		BatchNumber: b.BatchNumber,
		Expired:     b.IsExpired(time.Now()),
		ReceivedAt:  b.ReceivedAt.Format(time.RFC3339),
		Supplier:    b.Supplier,
		QCNotes:     b.QCNotes,
	}
	if b.ExpiryDate != nil {
		s := b.ExpiryDate.Format("2006-01-02")
		resp.ExpiryDate = &s
	}
	return resp
}

// MovementResponse represents a ledger movement in API responses
type MovementResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	LocationID    string  `json:"location_id"`
	BatchID       *string `json:"batch_id,omitempty"`
	Kind          string  `json:"kind"`
	Quantity      string  `json:"quantity"`
	ReferenceType string  `json:"reference_type"`
	ReferenceID   string  `json:"reference_id"`
	Reason        string  `json:"reason,omitempty"`
	Actor         string  `json:"actor"`
	RecordedAt    string  `json:"recorded_at"`
}

func toMovementResponse(m *stock.Movement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID.String(),
		ProductID:     m.ProductID.String(),
		LocationID:    m.LocationID.String(),
		Kind:          string(m.Kind),
		Quantity:      m.Quantity.String(),
		ReferenceType: string(m.ReferenceType),
		ReferenceID:   m.ReferenceID,
		Reason:        m.Reason,
		Actor:         m.Actor,
		RecordedAt:    m.RecordedAt.Format(time.RFC3339),
	}
	if m.BatchID != nil {
		s := m.BatchID.String()
		resp.BatchID = &s
	}
	return resp
}

func toMovementResponses(movements []*stock.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	return out
}

// OnHandSummaryResponse aggregates a product's stock position
type OnHandSummaryResponse struct {
	ProductID        string                     `json:"product_id"`
	Total            string                     `json:"total"`
	ByLocation       []OnHandByLocationResponse `json:"by_location"`
	ByBatch          []OnHandByBatchResponse    `json:"by_batch"`
	ExpiredWithStock []OnHandByBatchResponse    `json:"expired_with_stock"`
}

// OnHandByLocationResponse is one location slice of a summary
type OnHandByLocationResponse struct {
	LocationID string `json:"location_id"`
	Quantity   string `json:"quantity"`
}

// OnHandByBatchResponse is one batch slice of a summary
type OnHandByBatchResponse struct {
	BatchID     string  `json:"batch_id"`
	BatchNumber string  `json:"batch_number"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
	Expired     bool    `json:"expired"`
	Quantity    string  `json:"quantity"`
}

func toOnHandSummaryResponse(s *appstock.OnHandSummary) OnHandSummaryResponse {
	resp := OnHandSummaryResponse{
		ProductID:        s.ProductID.String(),
		Total:            s.Total.String(),
		ByLocation:       make([]OnHandByLocationResponse, 0, len(s.ByLocation)),
		ByBatch:          make([]OnHandByBatchResponse, 0, len(s.ByBatch)),
		ExpiredWithStock: make([]OnHandByBatchResponse, 0, len(s.ExpiredWithStock)),
	}
	for _, l := range s.ByLocation {
		resp.ByLocation = append(resp.ByLocation, OnHandByLocationResponse{
			LocationID: l.LocationID.String(),
			Quantity:   l.Quantity.String(),
		})
	}
	for _, b := range s.ByBatch {
		resp.ByBatch = append(resp.ByBatch, toOnHandByBatchResponse(b))
	}
	for _, b := range s.ExpiredWithStock {
		resp.ExpiredWithStock = append(resp.ExpiredWithStock, toOnHandByBatchResponse(b))
	}
	return resp
}

func toOnHandByBatchResponse(b appstock.OnHandByBatch) OnHandByBatchResponse {
	resp := OnHandByBatchResponse{
		BatchID:     b.BatchID.String(),
		BatchNumber: b.BatchNumber,
		Expired:     b.Expired,
		Quantity:    b.Quantity.String(),
	}
	if b.ExpiryDate != nil {
		s := b.ExpiryDate.Format("2006-01-02")
		resp.ExpiryDate = &s
	}
	return resp
}

// ExpiringBatchResponse is one line of the expiry lookahead
type ExpiringBatchResponse struct {
	ProductID   string `json:"product_id"`
	LocationID  string `json:"location_id"`
	BatchID     string `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	ExpiryDate  string `json:"expiry_date"`
	Quantity    string `json:"quantity"`
	DaysLeft    int    `json:"days_left"`
}

func toExpiringBatchResponses(batches []appstock.ExpiringBatch) []ExpiringBatchResponse {
	out := make([]ExpiringBatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, ExpiringBatchResponse{
			ProductID:   b.ProductID.String(),
			LocationID:  b.LocationID.String(),
			BatchID:     b.BatchID.String(),
			BatchNumber: b.BatchNumber,
			ExpiryDate:  b.ExpiryDate.Format("2006-01-02"),
			Quantity:    b.Quantity.String(),
			DaysLeft:    b.DaysLeft,
		})
	}
	return out
}

// ConsumeResultResponse is the outcome of a consumption request
type ConsumeResultResponse struct {
	Movements []MovementResponse `json:"movements"`
	Replayed  bool               `json:"replayed"`
	State     string             `json:"state"`
}

// RefundResultResponse is the outcome of a refund request
type RefundResultResponse struct {
	Movements []MovementResponse `json:"movements"`
	Replayed  bool               `json:"replayed"`
	State     string             `json:"state"`
}

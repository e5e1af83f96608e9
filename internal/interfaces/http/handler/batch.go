package handler

import (
	"time"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseDate parses an expiry or filter date, accepting RFC3339 or plain dates
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// BatchHandler handles batch registry endpoints
type BatchHandler struct {
	BaseHandler
	batches *appstock.BatchService
	queries *appstock.QueryService
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batches *appstock.BatchService, queries *appstock.QueryService) *BatchHandler {
	return &BatchHandler{batches: batches, queries: queries}
}

// RegisterRoutes registers batch routes
func (h *BatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/batches")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.UpdateMetadata)

	rg.POST("/stock/receive", h.Receive)
}

// CreateBatchRequest is the request body for registering a batch
type CreateBatchRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	BatchNumber string `json:"batch_number" binding:"required,min=1,max=100"`
	ExpiryDate  string `json:"expiry_date"`
	ReceivedAt  string `json:"received_at"`
	Supplier    string `json:"supplier" binding:"max=200"`
	QCNotes     string `json:"qc_notes"`
}

func (r CreateBatchRequest) toCommand() (appstock.CreateBatchCommand, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return appstock.CreateBatchCommand{}, err
	}

	cmd := appstock.CreateBatchCommand{
		ProductID:   productID,
		BatchNumber: r.BatchNumber,
		ReceivedAt:  time.Now(),
		Supplier:    r.Supplier,
		QCNotes:     r.QCNotes,
	}
	if r.ExpiryDate != "" {
		expiry, err := parseDate(r.ExpiryDate)
		if err != nil {
			return appstock.CreateBatchCommand{}, err
		}
		cmd.ExpiryDate = &expiry
	}
	if r.ReceivedAt != "" {
		receivedAt, err := parseDate(r.ReceivedAt)
		if err != nil {
			return appstock.CreateBatchCommand{}, err
		}
		cmd.ReceivedAt = receivedAt
	}
	return cmd, nil
}

// Create handles POST /batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.batches.CreateBatch(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toBatchResponse(batch))
}

// ReceiveStockRequest is the request body for receiving goods: the batch is
// registered (or reused by number) and the inbound movement booked together
type ReceiveStockRequest struct {
	CreateBatchRequest
	LocationID  string          `json:"location_id" binding:"required,uuid"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID string          `json:"reference_id"`
	Actor       string          `json:"actor" binding:"required,min=1,max=100"`
}

// Receive handles POST /stock/receive
func (h *BatchHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if !req.Quantity.IsPositive() {
		h.BadRequest(c, "quantity must be a positive number")
		return
	}

	batchCmd, err := req.toCommand()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	batch, movement, err := h.batches.ReceiveStock(c.Request.Context(), appstock.ReceiveStockCommand{
		CreateBatchCommand: batchCmd,
		LocationID:         locationID,
		Quantity:           req.Quantity,
		ReferenceID:        req.ReferenceID,
		Actor:              req.Actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{
		"batch":    toBatchResponse(batch),
		"movement": toMovementResponse(movement),
	})
}

// List handles GET /batches?product_id=
func (h *BatchHandler) List(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "product_id query parameter is required")
		return
	}

	batches, err := h.queries.ListBatches(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	h.Success(c, out)
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid batch ID")
		return
	}

	batch, err := h.queries.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponse(batch))
}

// UpdateBatchMetadataRequest is the request body for updating batch metadata
type UpdateBatchMetadataRequest struct {
	Supplier string `json:"supplier" binding:"max=200"`
	QCNotes  string `json:"qc_notes"`
}

// UpdateMetadata handles PUT /batches/:id
func (h *BatchHandler) UpdateMetadata(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid batch ID")
		return
	}

	var req UpdateBatchMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.batches.UpdateMetadata(c.Request.Context(), id, req.Supplier, req.QCNotes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponse(batch))
}

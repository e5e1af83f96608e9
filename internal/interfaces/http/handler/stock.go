package handler

import (
	"strconv"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockHandler handles ledger and projection endpoints
type StockHandler struct {
	BaseHandler
	ledger  *appstock.LedgerService
	queries *appstock.QueryService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger *appstock.LedgerService, queries *appstock.QueryService) *StockHandler {
	return &StockHandler{ledger: ledger, queries: queries}
}

// RegisterRoutes registers stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	g.POST("/movements", h.RecordMovement)
	g.GET("/movements", h.ListMovements)
	g.POST("/adjust", h.Adjust)
	g.POST("/transfer", h.Transfer)
	g.GET("/on-hand/:product_id", h.OnHandSummary)
	g.GET("/expiring", h.ListExpiring)
}

// RecordMovementRequest is the request body for appending a ledger movement.
// Quantity binds through decimal so the JSON literal is parsed exactly; both
// numbers and quoted strings are accepted.
type RecordMovementRequest struct {
	ProductID     string          `json:"product_id" binding:"required,uuid"`
	LocationID    string          `json:"location_id" binding:"required,uuid"`
	BatchID       string          `json:"batch_id" binding:"omitempty,uuid"`
	Kind          string          `json:"kind" binding:"required,movementkind"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type" binding:"required,referencetype"`
	ReferenceID   string          `json:"reference_id" binding:"required,min=1,max=100"`
	Reason        string          `json:"reason"`
	Actor         string          `json:"actor" binding:"required,min=1,max=100"`
	AllowExpired  bool            `json:"allow_expired"`
}

// RecordMovement handles POST /stock/movements
func (h *StockHandler) RecordMovement(c *gin.Context) {
	var req RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Quantity.IsZero() {
		h.BadRequest(c, "quantity must be a non-zero number")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	cmd := appstock.RecordMovementCommand{
		ProductID:     productID,
		LocationID:    locationID,
		Kind:          stock.MovementKind(req.Kind),
		Quantity:      req.Quantity,
		ReferenceType: stock.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		Reason:        req.Reason,
		Actor:         req.Actor,
		AllowExpired:  req.AllowExpired,
	}
	if req.BatchID != "" {
		batchID, err := uuid.Parse(req.BatchID)
		if err != nil {
			h.BadRequest(c, "invalid batch ID")
			return
		}
		cmd.BatchID = &batchID
	}

	movement, err := h.ledger.RecordMovement(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toMovementResponse(movement))
}

// ListMovements handles GET /stock/movements with optional filters
func (h *StockHandler) ListMovements(c *gin.Context) {
	filter, err := movementFilterFromQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	movements, total, err := h.queries.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	h.SuccessWithMeta(c, toMovementResponses(movements), total, page, pageSize)
}

func movementFilterFromQuery(c *gin.Context) (stock.MovementFilter, error) {
	var filter stock.MovementFilter

	for query, target := range map[string]**uuid.UUID{
		"product_id":  &filter.ProductID,
		"location_id": &filter.LocationID,
		"batch_id":    &filter.BatchID,
	} {
		if v := c.Query(query); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, err
			}
			*target = &id
		}
	}

	if v := c.Query("kind"); v != "" {
		kind := stock.MovementKind(v)
		filter.Kind = &kind
	}
	if v := c.Query("reference_type"); v != "" {
		refType := stock.ReferenceType(v)
		filter.ReferenceType = &refType
	}
	filter.ReferenceID = c.Query("reference_id")

	if v := c.Query("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return filter, nil
}

// AdjustStockRequest is the request body for a manual signed adjustment
type AdjustStockRequest struct {
	ProductID  string          `json:"product_id" binding:"required,uuid"`
	LocationID string          `json:"location_id" binding:"required,uuid"`
	BatchID    string          `json:"batch_id" binding:"omitempty,uuid"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason" binding:"required,min=1,max=255"`
	Actor      string          `json:"actor" binding:"required,min=1,max=100"`
}

// Adjust handles POST /stock/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Quantity.IsZero() {
		h.BadRequest(c, "quantity must be a non-zero number")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	cmd := appstock.AdjustStockCommand{
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Actor:      req.Actor,
	}
	if req.BatchID != "" {
		batchID, err := uuid.Parse(req.BatchID)
		if err != nil {
			h.BadRequest(c, "invalid batch ID")
			return
		}
		cmd.BatchID = &batchID
	}

	movement, err := h.ledger.Adjust(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toMovementResponse(movement))
}

// TransferStockRequest is the request body for an inter-location transfer
type TransferStockRequest struct {
	ProductID      string          `json:"product_id" binding:"required,uuid"`
	SourceLocation string          `json:"source_location" binding:"required,uuid"`
	DestLocation   string          `json:"dest_location" binding:"required,uuid"`
	BatchID        string          `json:"batch_id" binding:"required,uuid"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reason         string          `json:"reason"`
	Actor          string          `json:"actor" binding:"required,min=1,max=100"`
	AllowExpired   bool            `json:"allow_expired"`
}

// Transfer handles POST /stock/transfer
func (h *StockHandler) Transfer(c *gin.Context) {
	var req TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if !req.Quantity.IsPositive() {
		h.BadRequest(c, "quantity must be a positive number")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}
	source, err := uuid.Parse(req.SourceLocation)
	if err != nil {
		h.BadRequest(c, "invalid source location ID")
		return
	}
	dest, err := uuid.Parse(req.DestLocation)
	if err != nil {
		h.BadRequest(c, "invalid destination location ID")
		return
	}
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		h.BadRequest(c, "invalid batch ID")
		return
	}

	movements, err := h.ledger.Transfer(c.Request.Context(), appstock.TransferStockCommand{
		ProductID:      productID,
		SourceLocation: source,
		DestLocation:   dest,
		BatchID:        batchID,
		Quantity:       req.Quantity,
		Reason:         req.Reason,
		Actor:          req.Actor,
		AllowExpired:   req.AllowExpired,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toMovementResponses(movements))
}

// OnHandSummary handles GET /stock/on-hand/:product_id
func (h *StockHandler) OnHandSummary(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}

	summary, err := h.queries.GetOnHandSummary(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOnHandSummaryResponse(summary))
}

// ListExpiring handles GET /stock/expiring?days=&product_id=
func (h *StockHandler) ListExpiring(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 0 {
		h.BadRequest(c, "days must be a non-negative integer")
		return
	}

	var productID *uuid.UUID
	if v := c.Query("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "invalid product ID")
			return
		}
		productID = &id
	}

	batches, err := h.queries.ListExpiring(c.Request.Context(), days, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toExpiringBatchResponses(batches))
}

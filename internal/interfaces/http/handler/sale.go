package handler

import (
	"errors"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleHandler handles sale consumption and refund endpoints
type SaleHandler struct {
	BaseHandler
	orchestrator *appstock.Orchestrator
	queries      *appstock.QueryService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(orchestrator *appstock.Orchestrator, queries *appstock.QueryService) *SaleHandler {
	return &SaleHandler{orchestrator: orchestrator, queries: queries}
}

// RegisterRoutes registers sale stock routes
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sales")
	g.POST("/:sale_id/consume", h.Consume)
	g.POST("/:sale_id/refund", h.Refund)
	g.GET("/:sale_id/stock-state", h.StockState)
}

// SaleLineRequest is one product/quantity pair of a sale request. Quantity
// binds through decimal so the JSON literal is parsed exactly; both numbers
// and quoted strings are accepted.
type SaleLineRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func toSaleLines(lines []SaleLineRequest) ([]appstock.SaleLine, error) {
	out := make([]appstock.SaleLine, 0, len(lines))
	for _, l := range lines {
		productID, err := uuid.Parse(l.ProductID)
		if err != nil {
			return nil, errors.New("invalid product ID in lines")
		}
		if !l.Quantity.IsPositive() {
			return nil, errors.New("line quantity must be a positive number")
		}
		out = append(out, appstock.SaleLine{
			ProductID: productID,
			Quantity:  l.Quantity,
		})
	}
	return out, nil
}

// ConsumeRequest is the request body for consuming stock for a paid sale
type ConsumeRequest struct {
	LocationID   string            `json:"location_id" binding:"required,uuid"`
	Lines        []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	AllowExpired bool              `json:"allow_expired"`
	Actor        string            `json:"actor" binding:"required,min=1,max=100"`
}

// Consume handles POST /sales/:sale_id/consume
func (h *SaleHandler) Consume(c *gin.Context) {
	saleID := c.Param("sale_id")

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}
	lines, err := toSaleLines(req.Lines)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.orchestrator.ConsumeForSale(c.Request.Context(), appstock.ConsumeForSaleCommand{
		SaleID:       saleID,
		LocationID:   locationID,
		Lines:        lines,
		AllowExpired: req.AllowExpired,
		Actor:        req.Actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ConsumeResultResponse{
		Movements: toMovementResponses(result.Movements),
		Replayed:  result.Replayed,
		State:     string(result.State),
	})
}

// RefundRequest is the request body for reversing consumed stock
type RefundRequest struct {
	Strategy string `json:"strategy" binding:"required,oneof=FULL PARTIAL"`
	// Lines are required for partial refunds and ignored for full refunds
	Lines          []SaleLineRequest `json:"lines" binding:"omitempty,dive"`
	IdempotencyKey string            `json:"idempotency_key" binding:"required,min=1,max=100"`
	Reason         string            `json:"reason"`
	Actor          string            `json:"actor" binding:"required,min=1,max=100"`
}

// Refund handles POST /sales/:sale_id/refund
func (h *SaleHandler) Refund(c *gin.Context) {
	saleID := c.Param("sale_id")

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lines, err := toSaleLines(req.Lines)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.orchestrator.RefundStock(c.Request.Context(), appstock.RefundStockCommand{
		SaleID:         saleID,
		Strategy:       appstock.RefundStrategy(req.Strategy),
		Lines:          lines,
		IdempotencyKey: req.IdempotencyKey,
		Reason:         req.Reason,
		Actor:          req.Actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RefundResultResponse{
		Movements: toMovementResponses(result.Movements),
		Replayed:  result.Replayed,
		State:     string(result.State),
	})
}

// StockState handles GET /sales/:sale_id/stock-state
func (h *SaleHandler) StockState(c *gin.Context) {
	saleID := c.Param("sale_id")

	state, movements, err := h.queries.GetSaleStockState(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"sale_id":   saleID,
		"state":     string(state),
		"movements": toMovementResponses(movements),
	})
}

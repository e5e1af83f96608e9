package handler

import (
	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LocationHandler handles storage location endpoints
type LocationHandler struct {
	BaseHandler
	locations *appstock.LocationService
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(locations *appstock.LocationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// RegisterRoutes registers location routes
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/locations")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.PUT("/:id", h.Rename)
	g.POST("/:id/deactivate", h.Deactivate)
	g.POST("/:id/activate", h.Activate)
}

// CreateLocationRequest is the request body for creating a location
type CreateLocationRequest struct {
	Code     string `json:"code" binding:"required,min=1,max=50"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Category string `json:"category" binding:"required,oneof=WAREHOUSE CABINET ROOM OTHER"`
}

// Create handles POST /locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	location, err := h.locations.CreateLocation(c.Request.Context(), appstock.CreateLocationCommand{
		Code:     req.Code,
		Name:     req.Name,
		Category: stock.LocationCategory(req.Category),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toLocationResponse(location))
}

// List handles GET /locations
func (h *LocationHandler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"

	locations, err := h.locations.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]LocationResponse, 0, len(locations))
	for _, l := range locations {
		out = append(out, toLocationResponse(l))
	}
	h.Success(c, out)
}

// RenameLocationRequest is the request body for renaming a location
type RenameLocationRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// Rename handles PUT /locations/:id
func (h *LocationHandler) Rename(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	var req RenameLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	location, err := h.locations.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toLocationResponse(location))
}

// Deactivate handles POST /locations/:id/deactivate
func (h *LocationHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	location, err := h.locations.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toLocationResponse(location))
}

// Activate handles POST /locations/:id/activate
func (h *LocationHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid location ID")
		return
	}

	location, err := h.locations.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toLocationResponse(location))
}

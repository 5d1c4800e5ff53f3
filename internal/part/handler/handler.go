package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/auth"
	"github.com/garagehub/parts-service/internal/part"
	"github.com/garagehub/parts-service/internal/part/dto"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PartHandler struct {
	uc     part.UseCase
	logger logger.ZapLogger
}

func NewPartHandler(uc part.UseCase, log logger.ZapLogger) *PartHandler {
	return &PartHandler{uc: uc, logger: log}
}

type createPartRequest struct {
	PartID        string  `json:"part_id"`
	PartNumber    string  `json:"part_number"`
	PartName      string  `json:"part_name"`
	StockQuantity int     `json:"stock_quantity" binding:"gte=0"`
	MinStockLevel int     `json:"min_stock_level" binding:"gte=0"`
	Price         float64 `json:"price" binding:"gte=0"`
	GSTRate       float64 `json:"gst_rate" binding:"gte=0"`
	Unit          string  `json:"unit"`
}

func (r *createPartRequest) toInput(createdBy string) dto.CreatePartInput {
	return dto.CreatePartInput{
		PartID:        r.PartID,
		PartNumber:    r.PartNumber,
		PartName:      r.PartName,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		Price:         r.Price,
		GSTRate:       r.GSTRate,
		Unit:          r.Unit,
		CreatedBy:     createdBy,
	}
}

// Create inserts a part, or merges into an existing record when the business
// key triple matches.
// POST /api/v1/parts
func (h *PartHandler) Create(c *gin.Context) {
	var req createPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	input := req.toInput(auth.ActorID(c))
	result, err := h.uc.CreatePart(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Merged {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// BulkCreate imports a list of parts in one shot; row-level failures are
// reported without failing the batch.
// POST /api/v1/parts/bulk
func (h *PartHandler) BulkCreate(c *gin.Context) {
	var req struct {
		Parts []createPartRequest `json:"parts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	actor := auth.ActorID(c)
	rows := make([]dto.CreatePartInput, len(req.Parts))
	for i, r := range req.Parts {
		rows[i] = r.toInput(actor)
	}

	result, err := h.uc.BulkCreateParts(c.Request.Context(), rows)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/v1/parts/:id
func (h *PartHandler) Get(c *gin.Context) {
	p, err := h.uc.GetPart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/v1/parts
func (h *PartHandler) List(c *gin.Context) {
	filters := &dto.PartFilters{
		Query:    c.Query("q"),
		LowStock: c.Query("low_stock") == "true",
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 50),
	}

	items, count, err := h.uc.ListParts(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parts": items, "total": count})
}

type updatePartRequest struct {
	PartNumber    *string  `json:"part_number"`
	PartName      *string  `json:"part_name"`
	MinStockLevel *int     `json:"min_stock_level"`
	Price         *float64 `json:"price"`
	GSTRate       *float64 `json:"gst_rate"`
	Unit          *string  `json:"unit"`
}

// Update applies a partial update; omitted fields stay untouched.
// PATCH /api/v1/parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	var req updatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	p, err := h.uc.UpdatePart(c.Request.Context(), &dto.UpdatePartInput{
		ID:            c.Param("id"),
		PartNumber:    req.PartNumber,
		PartName:      req.PartName,
		MinStockLevel: req.MinStockLevel,
		Price:         req.Price,
		GSTRate:       req.GSTRate,
		Unit:          req.Unit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateStockRequest struct {
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Operation string `json:"operation" binding:"required"`
	Reason    string `json:"reason"`
}

// UpdateStock moves stock up or down through the audited ledger path.
// POST /api/v1/parts/:id/stock
func (h *PartHandler) UpdateStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	p, err := h.uc.UpdateStock(c.Request.Context(), &dto.UpdateStockInput{
		ID:        c.Param("id"),
		Quantity:  req.Quantity,
		Operation: req.Operation,
		Reason:    req.Reason,
		UpdatedBy: auth.ActorID(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PartHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("part handler error", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	var ise *apperrors.InsufficientStockError
	if errors.As(err, &ise) {
		c.JSON(status, gin.H{"error": err.Error(), "insufficient_items": ise.Items})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

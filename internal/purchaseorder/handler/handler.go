package handler

import (
	"net/http"
	"strconv"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/auth"
	"github.com/garagehub/parts-service/internal/purchaseorder"
	"github.com/garagehub/parts-service/internal/purchaseorder/dto"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PurchaseOrderHandler struct {
	uc     purchaseorder.UseCase
	logger logger.ZapLogger
}

func NewPurchaseOrderHandler(uc purchaseorder.UseCase, log logger.ZapLogger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc, logger: log}
}

type createOrderRequest struct {
	ServiceCenterID string             `json:"service_center_id" binding:"required"`
	Priority        string             `json:"priority"`
	Notes           string             `json:"notes"`
	Items           []orderItemRequest `json:"items" binding:"required,dive"`
}

type orderItemRequest struct {
	PartID       string  `json:"part_id"`
	PartNumber   string  `json:"part_number"`
	PartName     string  `json:"part_name" binding:"required"`
	RequestedQty int     `json:"requested_qty" binding:"required,min=1"`
	UnitPrice    float64 `json:"unit_price" binding:"gte=0"`
}

// Create opens a restock order toward the central inventory authority.
// POST /api/v1/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	items := make([]dto.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.OrderItemInput{
			PartID:       item.PartID,
			PartNumber:   item.PartNumber,
			PartName:     item.PartName,
			RequestedQty: item.RequestedQty,
			UnitPrice:    item.UnitPrice,
		}
	}

	created, err := h.uc.CreateOrder(c.Request.Context(), &dto.CreateOrderInput{
		ServiceCenterID: req.ServiceCenterID,
		RequestedBy:     auth.ActorName(c),
		Priority:        req.Priority,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type approveOrderRequest struct {
	Items []struct {
		ItemID      string `json:"item_id" binding:"required"`
		ApprovedQty int    `json:"approved_qty"`
	} `json:"items"`
}

// Approve records the central authority's per-line verdicts. Lines without a
// decision are approved in full; an approved quantity of zero rejects the line.
// POST /api/v1/purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	var req approveOrderRequest
	_ = c.ShouldBindJSON(&req)

	decisions := make([]dto.ItemDecision, len(req.Items))
	for i, d := range req.Items {
		decisions[i] = dto.ItemDecision{ItemID: d.ItemID, ApprovedQty: d.ApprovedQty}
	}

	updated, err := h.uc.ApproveOrder(c.Request.Context(), &dto.ApproveOrderInput{
		OrderID:  c.Param("id"),
		Approver: auth.ActorName(c),
		Items:    decisions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/v1/purchase-orders/:id/reject
func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	updated, err := h.uc.RejectOrder(c.Request.Context(), &dto.RejectOrderInput{
		OrderID:  c.Param("id"),
		Approver: auth.ActorName(c),
		Reason:   req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type issuePartsRequest struct {
	Items []struct {
		ItemID   string `json:"item_id" binding:"required"`
		Quantity int    `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required"`
}

// Issue receives delivered stock into the ledger against approved lines.
// POST /api/v1/purchase-orders/:id/issue
func (h *PurchaseOrderHandler) Issue(c *gin.Context) {
	var req issuePartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	lines := make([]dto.IssueLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = dto.IssueLine{ItemID: item.ItemID, Quantity: item.Quantity}
	}

	updated, err := h.uc.IssueParts(c.Request.Context(), &dto.IssuePartsInput{
		OrderID:  c.Param("id"),
		IssuedBy: auth.ActorID(c),
		Items:    lines,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GET /api/v1/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.uc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// GET /api/v1/purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	filters := &dto.OrderFilters{
		Status:          c.Query("status"),
		ServiceCenterID: c.Query("service_center_id"),
		Priority:        c.Query("priority"),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "page_size", 50),
	}

	items, count, err := h.uc.ListOrders(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": items, "total": count})
}

func (h *PurchaseOrderHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("purchase order handler error", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
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

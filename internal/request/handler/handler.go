package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/auth"
	"github.com/garagehub/parts-service/internal/request"
	"github.com/garagehub/parts-service/internal/request/dto"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RequestHandler struct {
	uc     request.UseCase
	logger logger.ZapLogger
}

func NewRequestHandler(uc request.UseCase, log logger.ZapLogger) *RequestHandler {
	return &RequestHandler{uc: uc, logger: log}
}

type submitRequest struct {
	JobCardID     string              `json:"job_card_id" binding:"required"`
	JobCardNumber string              `json:"job_card_number"`
	VehicleID     string              `json:"vehicle_id"`
	CustomerName  string              `json:"customer_name"`
	Items         []submitRequestItem `json:"items" binding:"required,dive"`
}

type submitRequestItem struct {
	PartID       string `json:"part_id"`
	PartName     string `json:"part_name" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	SerialNumber string `json:"serial_number"`
	IsWarranty   bool   `json:"is_warranty"`
}

// Submit creates a parts request against a job card.
// POST /api/v1/parts-requests
func (h *RequestHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	items := make([]dto.RequestItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.RequestItemInput{
			PartID:       item.PartID,
			PartName:     item.PartName,
			Quantity:     item.Quantity,
			SerialNumber: item.SerialNumber,
			IsWarranty:   item.IsWarranty,
		}
	}

	created, err := h.uc.Submit(c.Request.Context(), &dto.SubmitRequestInput{
		JobCardID:     req.JobCardID,
		JobCardNumber: req.JobCardNumber,
		VehicleID:     req.VehicleID,
		CustomerName:  req.CustomerName,
		RequestedBy:   auth.ActorName(c),
		Items:         items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Approve is the SC-manager gate.
// POST /api/v1/parts-requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	updated, err := h.uc.ApproveBySCManager(c.Request.Context(), &dto.ApproveInput{
		RequestID: c.Param("id"),
		Approver:  auth.ActorName(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/v1/parts-requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	updated, err := h.uc.Reject(c.Request.Context(), &dto.RejectInput{
		RequestID: c.Param("id"),
		Actor:     auth.ActorName(c),
		Reason:    req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type assignRequest struct {
	Engineer string `json:"engineer" binding:"required"`
	Notes    string `json:"notes"`
}

// Assign commits stock against an approved request.
// POST /api/v1/parts-requests/:id/assign
func (h *RequestHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updated, err := h.uc.AssignByInventoryManager(c.Request.Context(), &dto.AssignInput{
		RequestID: c.Param("id"),
		Assigner:  auth.ActorName(c),
		Engineer:  req.Engineer,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/v1/parts-requests/:id/complete
func (h *RequestHandler) Complete(c *gin.Context) {
	updated, err := h.uc.NotifyWorkCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GET /api/v1/parts-requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.uc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GET /api/v1/parts-requests
func (h *RequestHandler) List(c *gin.Context) {
	filters := &dto.RequestFilters{
		Status:    c.Query("status"),
		JobCardID: c.Query("job_card_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 50),
	}

	items, count, err := h.uc.ListRequests(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": items, "total": count})
}

func (h *RequestHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("parts request handler error", zap.Error(err))
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

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/garagehub/parts-service/internal/audit"
	"github.com/garagehub/parts-service/internal/audit/dto"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	uc     audit.UseCase
	logger logger.ZapLogger
}

func NewAuditHandler(uc audit.UseCase, log logger.ZapLogger) *AuditHandler {
	return &AuditHandler{uc: uc, logger: log}
}

// List returns stock-update history, newest first.
// GET /api/v1/stock-history
func (h *AuditHandler) List(c *gin.Context) {
	filters := &dto.HistoryFilters{
		PartID:    c.Query("part_id"),
		Movement:  c.Query("movement"),
		JobCardID: c.Query("job_card_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 50),
	}

	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartDate = &t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndDate = &t
		}
	}

	items, count, err := h.uc.ListHistory(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("stock history handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": items, "total": count})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

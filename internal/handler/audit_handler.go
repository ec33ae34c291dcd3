package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/service"
	"github.com/refreeg/moderation-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, actor service.Actor, filter models.AuditFilter) ([]models.AuditLog, int, error)
	Export(ctx context.Context, actor service.Actor, filter models.AuditFilter, format string) ([]byte, string, error)
}

// AuditHandler serves the moderation audit trail.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary List audit records
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := auditFilterFromQuery(c)
	logs, total, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Export godoc
// @Summary Download the audit trail as CSV or PDF
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200
// @Router /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	filter := auditFilterFromQuery(c)
	format := c.Query("format")
	payload, contentType, err := h.service.Export(c.Request.Context(), actorFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("audit-trail-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

func auditFilterFromQuery(c *gin.Context) models.AuditFilter {
	filter := models.AuditFilter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		filter.PageSize = size
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}
	return filter
}

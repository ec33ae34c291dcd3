package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refreeg/moderation-api/internal/models"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
	"github.com/refreeg/moderation-api/pkg/export"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AuditService records and reports the moderation audit trail.
type AuditService struct {
	repo   auditStore
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditStore, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// CreateAuditLog persists an audit record. Used by the other services.
func (s *AuditService) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := s.repo.Create(ctx, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit records for staff review.
func (s *AuditService) List(ctx context.Context, actor Actor, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	if !actor.IsStaff() {
		return nil, 0, appErrors.ErrForbidden
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list audit logs")
	}
	return logs, total, nil
}

// Export renders the filtered audit trail as CSV or PDF bytes.
func (s *AuditService) Export(ctx context.Context, actor Actor, filter models.AuditFilter, format string) ([]byte, string, error) {
	if actor.Role != models.RoleAdmin {
		return nil, "", appErrors.ErrForbidden
	}
	filter.Page = 1
	if filter.PageSize <= 0 {
		filter.PageSize = 200
	}
	logs, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load audit logs")
	}

	dataset := export.Dataset{
		Headers: []string{"Time", "User", "Action", "Resource", "Resource ID"},
		Rows:    make([]map[string]string, 0, len(logs)),
	}
	for _, log := range logs {
		row := map[string]string{
			"Time":     log.CreatedAt.Format(time.RFC3339),
			"Action":   log.Action,
			"Resource": log.Resource,
		}
		if log.UserID != nil {
			row["User"] = *log.UserID
		}
		if log.ResourceID != nil {
			row["Resource ID"] = *log.ResourceID
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Moderation Audit Trail")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

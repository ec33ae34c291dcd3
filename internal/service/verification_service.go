package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/notify"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
)

type documentStore interface {
	blobStore
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(recordID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (recordID, relPath string, expiresAt time.Time, err error)
}

type verificationStore interface {
	Create(ctx context.Context, verification *models.Verification) error
	Update(ctx context.Context, verification *models.Verification) error
	GetByID(ctx context.Context, id string) (*models.Verification, error)
	FindLatestByUser(ctx context.Context, userID string) (*models.Verification, error)
	ListPending(ctx context.Context) ([]models.Verification, error)
	Review(ctx context.Context, id string, status models.VerificationStatus, notes string) error
}

// DocumentUpload is the identity document attached to a KYC submission.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// VerificationServiceConfig holds file validation parameters.
type VerificationServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// VerificationService manages the KYC lifecycle: submission, resubmission
// in place, admin review, and the profile verification mirror.
type VerificationService struct {
	repo     verificationStore
	storage  documentStore
	signer   urlSigner
	notify   notifier
	audit    auditLogger
	validate *validator.Validate
	logger   *zap.Logger
	cfg      VerificationServiceConfig
	mimeSet  map[string]struct{}
}

// NewVerificationService constructs the service with defaults.
func NewVerificationService(repo verificationStore, storage documentStore, signer urlSigner, notify notifier, audit auditLogger, logger *zap.Logger, cfg VerificationServiceConfig) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "application/pdf"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &VerificationService{
		repo:     repo,
		storage:  storage,
		signer:   signer,
		notify:   notify,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
		mimeSet:  mimeSet,
	}
}

// Submit files a verification request. An already-approved user cannot
// resubmit; a user with a pending or rejected record has that record
// updated in place and returned to pending.
func (s *VerificationService) Submit(ctx context.Context, userID string, req dto.SubmitVerificationRequest, doc DocumentUpload) (*models.Verification, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if doc.Content == nil || doc.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "identity document is required")
	}
	if doc.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("document exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if _, allowed := s.mimeSet[strings.ToLower(doc.MimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document type not allowed")
	}

	existing, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load verification")
	}
	if existing != nil && existing.Status == models.VerificationApproved {
		return nil, appErrors.ErrAlreadyVerified
	}

	filename := fmt.Sprintf("kyc/%s/%d_%s", userID, time.Now().Unix(), doc.Filename)
	path, err := s.storage.SaveStream(filename, doc.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "failed to upload document")
	}

	if existing != nil {
		existing.DocumentType = req.DocumentType
		existing.DocumentPath = path
		existing.FullName = req.FullName
		existing.DateOfBirth = req.DateOfBirth
		existing.Phone = req.Phone
		existing.Address = req.Address
		existing.City = req.City
		existing.State = req.State
		existing.PostalCode = req.PostalCode
		existing.Country = req.Country
		existing.Status = models.VerificationPending
		notes := "Resubmitted for review"
		existing.Notes = &notes
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update verification")
		}
		s.notifyUser(ctx, userID, notify.TemplateVerificationSent)
		return existing, nil
	}

	notes := "Awaiting admin review"
	verification := &models.Verification{
		UserID:       userID,
		DocumentType: req.DocumentType,
		DocumentPath: path,
		FullName:     req.FullName,
		DateOfBirth:  req.DateOfBirth,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Status:       models.VerificationPending,
		Notes:        &notes,
	}
	if err := s.repo.Create(ctx, verification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create verification")
	}
	s.notifyUser(ctx, userID, notify.TemplateVerificationSent)
	return verification, nil
}

// Review records an admin decision. The profile verification flag is
// mirrored in the same transaction as the status change; when reviews
// race, the last one to commit wins both writes.
func (s *VerificationService) Review(ctx context.Context, id string, actor Actor, req dto.ReviewVerificationRequest) error {
	verification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load verification")
	}

	status := models.VerificationRejected
	template := notify.TemplateVerificationRejected
	notes := req.Notes
	if req.Approve {
		status = models.VerificationApproved
		template = notify.TemplateVerificationApproved
		if notes == "" {
			notes = "Verification approved"
		}
	} else if notes == "" {
		notes = "Verification rejected"
	}

	if err := s.repo.Review(ctx, id, status, notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to review verification")
	}

	s.notifyUser(ctx, verification.UserID, template)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionVerificationReview,
		Resource:   "verification",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"notes":%q}`, status, notes)),
	})
	return nil
}

// Status returns the caller's latest verification record with the stored
// document path resolved to a fetchable URL.
func (s *VerificationService) Status(ctx context.Context, userID string) (*dto.VerificationStatusResponse, error) {
	verification, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load verification")
	}
	if verification == nil {
		return nil, appErrors.ErrNotFound
	}
	response := &dto.VerificationStatusResponse{Verification: *verification}
	if verification.DocumentPath != "" {
		response.DocumentURL = s.storage.PublicURL(verification.DocumentPath)
	}
	return response, nil
}

// DocumentToken issues a time-limited download token for a verification
// document. Staff only; the token itself authorises the download.
func (s *VerificationService) DocumentToken(ctx context.Context, id string, actor Actor) (string, time.Time, error) {
	if !actor.IsStaff() {
		return "", time.Time{}, appErrors.ErrForbidden
	}
	if s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	verification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.ErrNotFound
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load verification")
	}
	token, expiresAt, err := s.signer.Generate(verification.ID, verification.DocumentPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document token")
	}
	return token, expiresAt, nil
}

// OpenDocument validates a download token and opens the referenced file.
// The caller owns the returned handle.
func (s *VerificationService) OpenDocument(ctx context.Context, token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	id, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired document token")
	}
	verification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.ErrNotFound
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load verification")
	}
	if verification.DocumentPath != relPath {
		return nil, "", appErrors.ErrForbidden
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open document")
	}
	return file, filepath.Base(relPath), nil
}

// ListPending returns the admin review queue.
func (s *VerificationService) ListPending(ctx context.Context, actor Actor) ([]models.Verification, error) {
	if !actor.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	verifications, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list verifications")
	}
	return verifications, nil
}

func (s *VerificationService) notifyUser(ctx context.Context, userID, template string) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(ctx, userID, template, nil)
}

func (s *VerificationService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "verification-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create verification audit", zap.Error(err))
	}
}

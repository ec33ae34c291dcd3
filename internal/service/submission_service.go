package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/notify"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
)

// Actor identifies the authenticated caller with the role resolved from
// the roles table.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// IsStaff reports whether the actor may review moderation queues.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleManager || a.Role == models.RoleAdmin
}

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	MarkExpired(ctx context.Context, ids []string) error
	ExpireDue(ctx context.Context) (int64, error)
	Approve(ctx context.Context, id string) error
	ApproveWithEdit(ctx context.Context, submissionID string, edit *models.SubmissionEdit) error
	Reject(ctx context.Context, id, reason string) error
	IncrementShared(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CreateEdit(ctx context.Context, edit *models.SubmissionEdit) error
	FindLatestPendingEdit(ctx context.Context, submissionID string) (*models.SubmissionEdit, error)
	RejectEdit(ctx context.Context, editID, reason string) error
	ListPendingEdits(ctx context.Context, kind models.SubmissionKind) ([]models.SubmissionEdit, error)
}

type blobStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	PublicURL(reference string) string
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type notifier interface {
	Notify(ctx context.Context, userID, template string, params map[string]string)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// MediaUpload is one attachment submitted alongside a draft.
type MediaUpload struct {
	Filename string
	Content  io.Reader
	Cover    bool
}

// SubmissionService implements the moderated lifecycle for causes and
// petitions: submit, stage-edit, approve, reject, expire, and queries.
type SubmissionService struct {
	repo     submissionStore
	storage  blobStore
	cache    listingCache
	notify   notifier
	audit    auditLogger
	validate *validator.Validate
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionStore, storage blobStore, cache listingCache, notify notifier, audit auditLogger, logger *zap.Logger, cacheTTL time.Duration) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &SubmissionService{
		repo:     repo,
		storage:  storage,
		cache:    cache,
		notify:   notify,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Submit validates and persists a new pending submission. Attached media
// is uploaded first; any upload failure aborts the whole operation before
// a row is written. Already-uploaded files are not removed on failure.
func (s *SubmissionService) Submit(ctx context.Context, kind models.SubmissionKind, ownerID string, req dto.CreateSubmissionRequest, uploads []MediaUpload) (*models.Submission, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission kind")
	}
	if ownerID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	daysActive, err := computeDaysActive(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	coverImage := req.CoverImage
	multimedia := append([]string{}, req.Multimedia...)
	for _, upload := range uploads {
		reference, err := s.storage.SaveStream(upload.Filename, upload.Content)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "failed to upload media")
		}
		if upload.Cover {
			coverImage = &reference
		} else {
			multimedia = append(multimedia, reference)
		}
	}

	submission := &models.Submission{
		OwnerID:    ownerID,
		Kind:       kind,
		Title:      req.Title,
		Category:   req.Category,
		Goal:       req.Goal,
		CoverImage: coverImage,
		Multimedia: pq.StringArray(multimedia),
		VideoLinks: pq.StringArray(append([]string{}, req.VideoLinks...)),
		DaysActive: daysActive,
		Status:     models.StatusPending,
		Sections:   sectionsFromInput(req.Sections),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create submission")
	}
	s.invalidateListings(ctx, kind)
	return submission, nil
}

// StageEdit records a full-content replacement for later review. The
// submission itself is untouched; an edit may be staged regardless of the
// submission's current status.
func (s *SubmissionService) StageEdit(ctx context.Context, submissionID, ownerID string, content dto.ProposedContent) (*models.SubmissionEdit, error) {
	if err := s.validate.Struct(content); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.OwnerID != ownerID {
		return nil, appErrors.ErrForbidden
	}

	edit := &models.SubmissionEdit{
		SubmissionID: submission.ID,
		OwnerID:      ownerID,
		Title:        content.Title,
		Category:     content.Category,
		Goal:         content.Goal,
		CoverImage:   content.CoverImage,
		Multimedia:   pq.StringArray(append([]string{}, content.Multimedia...)),
		VideoLinks:   pq.StringArray(append([]string{}, content.VideoLinks...)),
		DaysActive:   content.DaysActive,
		Status:       models.EditStatusPending,
		Sections:     sectionsFromInput(content.Sections),
	}
	if err := s.repo.CreateEdit(ctx, edit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to stage edit")
	}
	return edit, nil
}

// Approve transitions a submission to approved. When a pending edit
// exists, the newest one is merged onto the submission and consumed in
// the same transaction; older pending edits are left behind. Approving an
// already-approved submission with no pending edit is a no-op transition.
func (s *SubmissionService) Approve(ctx context.Context, submissionID string, actor Actor) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	edit, err := s.repo.FindLatestPendingEdit(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load pending edit")
	}
	if edit != nil {
		if err := s.repo.ApproveWithEdit(ctx, submissionID, edit); err != nil {
			return nil, mapStoreError(err, "failed to merge edit")
		}
	} else {
		if err := s.repo.Approve(ctx, submissionID); err != nil {
			return nil, mapStoreError(err, "failed to approve submission")
		}
	}

	s.notifyOwner(ctx, submission.OwnerID, notify.TemplateSubmissionApproved, submission.Title)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionApprove,
		Resource:   string(submission.Kind),
		ResourceID: &submission.ID,
	})
	s.invalidateListings(ctx, submission.Kind)
	return s.loadSubmission(ctx, submissionID)
}

// Reject marks the submission rejected with the supplied reason. When a
// pending edit exists it is rejected too, with the same reason, so the
// decision covers both the live record and the staged change.
func (s *SubmissionService) Reject(ctx context.Context, submissionID string, actor Actor, reason string) error {
	if reason == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return err
	}

	edit, err := s.repo.FindLatestPendingEdit(ctx, submissionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load pending edit")
	}
	if edit != nil {
		if err := s.repo.RejectEdit(ctx, edit.ID, reason); err != nil {
			return mapStoreError(err, "failed to reject edit")
		}
	}
	if err := s.repo.Reject(ctx, submissionID, reason); err != nil {
		return mapStoreError(err, "failed to reject submission")
	}

	s.notifyOwner(ctx, submission.OwnerID, notify.TemplateSubmissionRejected, submission.Title)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionReject,
		Resource:   string(submission.Kind),
		ResourceID: &submission.ID,
		NewValues:  []byte(fmt.Sprintf(`{"reason":%q}`, reason)),
	})
	s.invalidateListings(ctx, submission.Kind)
	return nil
}

// List returns a page of submissions. The default public view shows only
// approved entries; an owner filter shows the owner everything including
// expired items. Approved entries whose active window has run out are
// re-persisted as expired during the call and dropped from non-owner
// results in the same pass.
func (s *SubmissionService) List(ctx context.Context, kind models.SubmissionKind, query dto.ListSubmissionsQuery) (*dto.ListSubmissionsResponse, error) {
	filter, publicView, err := buildFilter(kind, query)
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if publicView && s.cache != nil {
		cacheKey = fmt.Sprintf("submissions:%s:%s:%d:%d", kind, query.Category, filter.Page, filter.PageSize)
		var cached dto.ListSubmissionsResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list submissions")
	}

	var dueIDs []string
	for i := range items {
		if items[i].Status == models.StatusApproved && items[i].DaysActive != nil && *items[i].DaysActive <= 0 {
			dueIDs = append(dueIDs, items[i].ID)
			items[i].Status = models.StatusExpired
		}
	}
	if len(dueIDs) > 0 {
		if err := s.repo.MarkExpired(ctx, dueIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to expire submissions")
		}
	}
	if filter.OwnerID == "" {
		visible := make([]models.Submission, 0, len(items))
		for _, item := range items {
			if item.Status == models.StatusExpired {
				total--
				continue
			}
			visible = append(visible, item)
		}
		items = visible
	}

	result := &dto.ListSubmissionsResponse{
		Items: items,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}
	if cacheKey != "" && len(dueIDs) == 0 {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache listing", zap.Error(err))
		}
	}
	return result, nil
}

// Count returns the number of submissions visible under the filter's
// default visibility rules. It performs no expiry side effect.
func (s *SubmissionService) Count(ctx context.Context, kind models.SubmissionKind, query dto.ListSubmissionsQuery) (int, error) {
	filter, _, err := buildFilter(kind, query)
	if err != nil {
		return 0, err
	}
	filter.Page = 1
	filter.PageSize = 1
	_, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count submissions")
	}
	return total, nil
}

// GetByID returns a submission with sections. Pending and rejected
// entries are hidden from everyone except the owner and staff.
func (s *SubmissionService) GetByID(ctx context.Context, id string, actor Actor) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status == models.StatusPending || submission.Status == models.StatusRejected {
		if submission.OwnerID != actor.UserID && !actor.IsStaff() {
			return nil, appErrors.ErrNotFound
		}
	}
	return submission, nil
}

// Delete removes a submission entirely. Owner only; this bypasses the
// state machine.
func (s *SubmissionService) Delete(ctx context.Context, id string, actor Actor) error {
	submission, err := s.loadSubmission(ctx, id)
	if err != nil {
		return err
	}
	if submission.OwnerID != actor.UserID {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete submission")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionDelete,
		Resource:   string(submission.Kind),
		ResourceID: &submission.ID,
	})
	s.invalidateListings(ctx, submission.Kind)
	return nil
}

// Share bumps the share counter. The increment happens in a single
// statement so concurrent shares never lose updates.
func (s *SubmissionService) Share(ctx context.Context, id string) error {
	if err := s.repo.IncrementShared(ctx, id); err != nil {
		return mapStoreError(err, "failed to record share")
	}
	return nil
}

// ListPendingEdits returns the staged-edit review queue for staff.
func (s *SubmissionService) ListPendingEdits(ctx context.Context, kind models.SubmissionKind, actor Actor) ([]models.SubmissionEdit, error) {
	if !actor.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	edits, err := s.repo.ListPendingEdits(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list pending edits")
	}
	return edits, nil
}

// ExpireDue flips every overdue approved submission to expired. Called by
// the background sweep so items that are never listed still expire.
func (s *SubmissionService) ExpireDue(ctx context.Context) (int64, error) {
	affected, err := s.repo.ExpireDue(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to expire submissions")
	}
	if affected > 0 {
		s.invalidateListings(ctx, models.KindCause)
		s.invalidateListings(ctx, models.KindPetition)
	}
	return affected, nil
}

func (s *SubmissionService) loadSubmission(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *SubmissionService) invalidateListings(ctx context.Context, kind models.SubmissionKind) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("submissions:%s:*", kind)); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *SubmissionService) notifyOwner(ctx context.Context, ownerID, template, title string) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(ctx, ownerID, template, map[string]string{"title": title})
}

func (s *SubmissionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "submission-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create submission audit", zap.Error(err))
	}
}

func buildFilter(kind models.SubmissionKind, query dto.ListSubmissionsQuery) (models.SubmissionFilter, bool, error) {
	if !kind.Valid() {
		return models.SubmissionFilter{}, false, appErrors.Clone(appErrors.ErrValidation, "unknown submission kind")
	}
	filter := models.SubmissionFilter{
		Kind:     kind,
		Category: query.Category,
		OwnerID:  query.Owner,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	publicView := false
	switch {
	case query.Owner != "":
		// Owner dashboard sees every status.
	case query.Status != "":
		status := models.SubmissionStatus(query.Status)
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusExpired:
			filter.Status = &status
		default:
			return models.SubmissionFilter{}, false, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
	default:
		approved := models.StatusApproved
		filter.Status = &approved
		publicView = true
	}
	return filter, publicView, nil
}

func sectionsFromInput(inputs []dto.SectionInput) []models.SubmissionSection {
	sections := make([]models.SubmissionSection, 0, len(inputs))
	for i, input := range inputs {
		sections = append(sections, models.SubmissionSection{
			Heading:  input.Heading,
			Body:     input.Body,
			Position: i,
		})
	}
	return sections
}

func computeDaysActive(startDate, endDate *string) (*int, error) {
	if startDate == nil || endDate == nil {
		return nil, nil
	}
	start, err := parseDate(*startDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := parseDate(*endDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	return &days, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func mapStoreError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, message)
}

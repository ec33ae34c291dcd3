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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
)

type stubSubmissionRepo struct {
	submissions map[string]*models.Submission
	pendingEdit *models.SubmissionEdit
	edits       []*models.SubmissionEdit

	approved      []string
	approvedEdits []*models.SubmissionEdit
	rejected      map[string]string
	rejectedEdits map[string]string
	expiredIDs    []string
	shared        []string
	deleted       []string
	sweepCount    int64

	createErr error
	uploadErr error
}

func newStubSubmissionRepo() *stubSubmissionRepo {
	return &stubSubmissionRepo{
		submissions:   map[string]*models.Submission{},
		rejected:      map[string]string{},
		rejectedEdits: map[string]string{},
	}
}

func (r *stubSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	if submission.ID == "" {
		submission.ID = fmt.Sprintf("sub-%d", len(r.submissions)+1)
	}
	r.submissions[submission.ID] = submission
	return nil
}

func (r *stubSubmissionRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
	submission, ok := r.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *submission
	return &clone, nil
}

func (r *stubSubmissionRepo) List(_ context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	var items []models.Submission
	for _, submission := range r.submissions {
		if submission.Kind != filter.Kind {
			continue
		}
		if filter.OwnerID != "" && submission.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		if filter.Category != "" && submission.Category != filter.Category {
			continue
		}
		items = append(items, *submission)
	}
	return items, len(items), nil
}

func (r *stubSubmissionRepo) MarkExpired(_ context.Context, ids []string) error {
	r.expiredIDs = append(r.expiredIDs, ids...)
	for _, id := range ids {
		if submission, ok := r.submissions[id]; ok && submission.Status == models.StatusApproved {
			submission.Status = models.StatusExpired
		}
	}
	return nil
}

func (r *stubSubmissionRepo) ExpireDue(_ context.Context) (int64, error) {
	return r.sweepCount, nil
}

func (r *stubSubmissionRepo) Approve(_ context.Context, id string) error {
	submission, ok := r.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	submission.Status = models.StatusApproved
	submission.RejectionReason = nil
	r.approved = append(r.approved, id)
	return nil
}

func (r *stubSubmissionRepo) ApproveWithEdit(_ context.Context, submissionID string, edit *models.SubmissionEdit) error {
	submission, ok := r.submissions[submissionID]
	if !ok {
		return sql.ErrNoRows
	}
	submission.Title = edit.Title
	submission.Category = edit.Category
	submission.Goal = edit.Goal
	submission.Status = models.StatusApproved
	r.approvedEdits = append(r.approvedEdits, edit)
	r.pendingEdit = nil
	return nil
}

func (r *stubSubmissionRepo) Reject(_ context.Context, id, reason string) error {
	submission, ok := r.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	submission.Status = models.StatusRejected
	submission.RejectionReason = &reason
	r.rejected[id] = reason
	return nil
}

func (r *stubSubmissionRepo) IncrementShared(_ context.Context, id string) error {
	submission, ok := r.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	submission.Shared++
	r.shared = append(r.shared, id)
	return nil
}

func (r *stubSubmissionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.submissions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.submissions, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubSubmissionRepo) CreateEdit(_ context.Context, edit *models.SubmissionEdit) error {
	if edit.ID == "" {
		edit.ID = fmt.Sprintf("edit-%d", len(r.edits)+1)
	}
	r.edits = append(r.edits, edit)
	return nil
}

func (r *stubSubmissionRepo) FindLatestPendingEdit(_ context.Context, _ string) (*models.SubmissionEdit, error) {
	return r.pendingEdit, nil
}

func (r *stubSubmissionRepo) RejectEdit(_ context.Context, editID, reason string) error {
	r.rejectedEdits[editID] = reason
	if r.pendingEdit != nil && r.pendingEdit.ID == editID {
		r.pendingEdit.Status = models.EditStatusRejected
		r.pendingEdit.RejectionReason = &reason
	}
	return nil
}

func (r *stubSubmissionRepo) ListPendingEdits(_ context.Context, _ models.SubmissionKind) ([]models.SubmissionEdit, error) {
	var edits []models.SubmissionEdit
	for _, edit := range r.edits {
		if edit.Status == models.EditStatusPending {
			edits = append(edits, *edit)
		}
	}
	return edits, nil
}

type stubBlob struct {
	saved     []string
	failAfter int
	dir       string
}

func (b *stubBlob) SaveStream(filename string, _ io.Reader) (string, error) {
	if b.failAfter > 0 && len(b.saved) >= b.failAfter {
		return "", errors.New("blob store unavailable")
	}
	b.saved = append(b.saved, filename)
	return "uploads/" + filename, nil
}

func (b *stubBlob) PublicURL(reference string) string {
	return "https://cdn.example.com/" + reference
}

func (b *stubBlob) Open(filename string) (*os.File, error) {
	if b.dir == "" {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(b.dir, filename))
}

type stubNotifier struct {
	sent []string
}

func (n *stubNotifier) Notify(_ context.Context, userID, template string, _ map[string]string) {
	n.sent = append(n.sent, userID+":"+template)
}

type stubAudit struct {
	logs []*models.AuditLog
}

func (a *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newSubmissionService(repo *stubSubmissionRepo) (*SubmissionService, *stubBlob, *stubNotifier, *stubAudit) {
	blob := &stubBlob{}
	notif := &stubNotifier{}
	audit := &stubAudit{}
	svc := NewSubmissionService(repo, blob, nil, notif, audit, nil, time.Minute)
	return svc, blob, notif, audit
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestSubmitComputesDaysActive(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	submission, err := svc.Submit(context.Background(), models.KindCause, "user-1", dto.CreateSubmissionRequest{
		Title:     "Clean Water",
		Category:  "health",
		Goal:      50000,
		StartDate: strPtr("2024-01-01"),
		EndDate:   strPtr("2024-01-31"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, submission.Status)
	require.NotNil(t, submission.DaysActive)
	require.Equal(t, 30, *submission.DaysActive)
}

func TestSubmitRejectsNonPositiveGoal(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	_, err := svc.Submit(context.Background(), models.KindCause, "user-1", dto.CreateSubmissionRequest{
		Title:    "Clean Water",
		Category: "health",
		Goal:     0,
	}, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Empty(t, repo.submissions)
}

func TestSubmitRejectsInvalidDates(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	_, err := svc.Submit(context.Background(), models.KindPetition, "user-1", dto.CreateSubmissionRequest{
		Title:     "Stop This",
		Category:  "civic",
		Goal:      100,
		StartDate: strPtr("2024-02-10"),
		EndDate:   strPtr("2024-02-01"),
	}, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Submit(context.Background(), models.KindPetition, "user-1", dto.CreateSubmissionRequest{
		Title:     "Stop This",
		Category:  "civic",
		Goal:      100,
		StartDate: strPtr("not-a-date"),
		EndDate:   strPtr("2024-02-01"),
	}, nil)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSubmitUploadFailureLeavesNothingPersisted(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, blob, _, _ := newSubmissionService(repo)
	blob.failAfter = 1

	_, err := svc.Submit(context.Background(), models.KindCause, "user-1", dto.CreateSubmissionRequest{
		Title:    "Clean Water",
		Category: "health",
		Goal:     50000,
	}, []MediaUpload{
		{Filename: "one.jpg", Content: strings.NewReader("a")},
		{Filename: "two.jpg", Content: strings.NewReader("b")},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUpload.Code, appErr.Code)
	require.Empty(t, repo.submissions)
	// The first upload is not rolled back.
	require.Len(t, blob.saved, 1)
}

func TestApproveMergesNewestPendingEdit(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause,
		Title: "Original", Category: "health", Goal: 50000, Raised: 120,
		Status: models.StatusApproved,
	}
	repo.pendingEdit = &models.SubmissionEdit{
		ID: "edit-2", SubmissionID: "sub-1", OwnerID: "user-1",
		Title: "Updated Title", Category: "health", Goal: 75000,
		Status: models.EditStatusPending,
	}
	svc, _, notif, audit := newSubmissionService(repo)

	submission, err := svc.Approve(context.Background(), "sub-1", Actor{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, "Updated Title", submission.Title)
	require.EqualValues(t, 75000, submission.Goal)
	require.Equal(t, models.StatusApproved, submission.Status)
	// Fields outside the proposed content survive the merge.
	require.Equal(t, "user-1", submission.OwnerID)
	require.EqualValues(t, 120, submission.Raised)
	require.Len(t, repo.approvedEdits, 1)
	require.Equal(t, "edit-2", repo.approvedEdits[0].ID)
	require.Contains(t, notif.sent, "user-1:submission_approved")
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionSubmissionApprove, audit.logs[0].Action)
}

func TestApproveWithoutEditIsDirect(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause,
		Title: "Original", Status: models.StatusPending,
	}
	svc, _, _, _ := newSubmissionService(repo)

	submission, err := svc.Approve(context.Background(), "sub-1", Actor{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, submission.Status)
	require.Equal(t, "Original", submission.Title)

	// Approving again without a pending edit succeeds and changes nothing.
	again, err := svc.Approve(context.Background(), "sub-1", Actor{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, again.Status)
}

func TestApproveMissingSubmission(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	_, err := svc.Approve(context.Background(), "missing", Actor{UserID: "admin-1", Role: models.RoleAdmin})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

// Rejecting a submission that has a pending edit marks both the edit and
// the submission rejected with the same reason. The submission is pulled
// out of public view even though only the edit was under review.
func TestRejectAppliesToBothEditAndSubmission(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause,
		Title: "Live", Status: models.StatusApproved,
	}
	repo.pendingEdit = &models.SubmissionEdit{
		ID: "edit-1", SubmissionID: "sub-1", OwnerID: "user-1",
		Status: models.EditStatusPending,
	}
	svc, _, notif, _ := newSubmissionService(repo)

	err := svc.Reject(context.Background(), "sub-1", Actor{UserID: "admin-1", Role: models.RoleAdmin}, "misleading claims")
	require.NoError(t, err)
	require.Equal(t, "misleading claims", repo.rejectedEdits["edit-1"])
	require.Equal(t, "misleading claims", repo.rejected["sub-1"])
	require.Equal(t, models.StatusRejected, repo.submissions["sub-1"].Status)
	require.Contains(t, notif.sent, "user-1:submission_rejected")
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	err := svc.Reject(context.Background(), "sub-1", Actor{UserID: "admin-1", Role: models.RoleAdmin}, "")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestListPublicExpiresOverdueEntries(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-live"] = &models.Submission{
		ID: "sub-live", OwnerID: "user-1", Kind: models.KindCause,
		Status: models.StatusApproved, DaysActive: intPtr(1),
	}
	repo.submissions["sub-due"] = &models.Submission{
		ID: "sub-due", OwnerID: "user-1", Kind: models.KindCause,
		Status: models.StatusApproved, DaysActive: intPtr(-1),
	}
	svc, _, _, _ := newSubmissionService(repo)

	result, err := svc.List(context.Background(), models.KindCause, dto.ListSubmissionsQuery{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "sub-live", result.Items[0].ID)
	require.Equal(t, []string{"sub-due"}, repo.expiredIDs)
	require.Equal(t, models.StatusExpired, repo.submissions["sub-due"].Status)
}

func TestListExpiryBoundary(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-zero"] = &models.Submission{
		ID: "sub-zero", OwnerID: "user-1", Kind: models.KindCause,
		Status: models.StatusApproved, DaysActive: intPtr(0),
	}
	repo.submissions["sub-one"] = &models.Submission{
		ID: "sub-one", OwnerID: "user-1", Kind: models.KindCause,
		Status: models.StatusApproved, DaysActive: intPtr(1),
	}
	svc, _, _, _ := newSubmissionService(repo)

	result, err := svc.List(context.Background(), models.KindCause, dto.ListSubmissionsQuery{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "sub-one", result.Items[0].ID)
	require.Equal(t, []string{"sub-zero"}, repo.expiredIDs)
}

func TestListOwnerSeesEverything(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-pending"] = &models.Submission{
		ID: "sub-pending", OwnerID: "user-1", Kind: models.KindCause, Status: models.StatusPending,
	}
	repo.submissions["sub-expired"] = &models.Submission{
		ID: "sub-expired", OwnerID: "user-1", Kind: models.KindCause,
		Status: models.StatusApproved, DaysActive: intPtr(-2),
	}
	repo.submissions["sub-other"] = &models.Submission{
		ID: "sub-other", OwnerID: "user-2", Kind: models.KindCause, Status: models.StatusApproved,
	}
	svc, _, _, _ := newSubmissionService(repo)

	result, err := svc.List(context.Background(), models.KindCause, dto.ListSubmissionsQuery{Owner: "user-1"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	for _, item := range result.Items {
		require.Equal(t, "user-1", item.OwnerID)
		if item.ID == "sub-expired" {
			require.Equal(t, models.StatusExpired, item.Status)
		}
	}
}

func TestGetByIDHidesPendingFromStrangers(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause, Status: models.StatusPending,
	}
	svc, _, _, _ := newSubmissionService(repo)

	_, err := svc.GetByID(context.Background(), "sub-1", Actor{UserID: "user-2", Role: models.RoleUser})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	owned, err := svc.GetByID(context.Background(), "sub-1", Actor{UserID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)
	require.Equal(t, "sub-1", owned.ID)

	staff, err := svc.GetByID(context.Background(), "sub-1", Actor{UserID: "mgr-1", Role: models.RoleManager})
	require.NoError(t, err)
	require.Equal(t, "sub-1", staff.ID)
}

func TestStageEditRequiresOwnership(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause, Status: models.StatusApproved,
	}
	svc, _, _, _ := newSubmissionService(repo)

	content := dto.ProposedContent{Title: "New Title", Category: "health", Goal: 1000}
	_, err := svc.StageEdit(context.Background(), "sub-1", "user-2", content)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	edit, err := svc.StageEdit(context.Background(), "sub-1", "user-1", content)
	require.NoError(t, err)
	require.Equal(t, models.EditStatusPending, edit.Status)
	require.Equal(t, models.StatusApproved, repo.submissions["sub-1"].Status)
}

func TestShareIncrementsCounter(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause, Status: models.StatusApproved,
	}
	svc, _, _, _ := newSubmissionService(repo)

	require.NoError(t, svc.Share(context.Background(), "sub-1"))
	require.NoError(t, svc.Share(context.Background(), "sub-1"))
	require.EqualValues(t, 2, repo.submissions["sub-1"].Shared)

	err := svc.Share(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteRequiresOwnership(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.submissions["sub-1"] = &models.Submission{
		ID: "sub-1", OwnerID: "user-1", Kind: models.KindCause, Status: models.StatusRejected,
	}
	svc, _, _, _ := newSubmissionService(repo)

	err := svc.Delete(context.Background(), "sub-1", Actor{UserID: "user-2", Role: models.RoleAdmin})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), "sub-1", Actor{UserID: "user-1", Role: models.RoleUser}))
	require.Equal(t, []string{"sub-1"}, repo.deleted)
}

func TestListPendingEditsStaffOnly(t *testing.T) {
	repo := newStubSubmissionRepo()
	repo.edits = append(repo.edits, &models.SubmissionEdit{ID: "edit-1", Status: models.EditStatusPending})
	svc, _, _, _ := newSubmissionService(repo)

	_, err := svc.ListPendingEdits(context.Background(), models.KindCause, Actor{UserID: "user-1", Role: models.RoleUser})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	edits, err := svc.ListPendingEdits(context.Background(), models.KindCause, Actor{UserID: "mgr-1", Role: models.RoleManager})
	require.NoError(t, err)
	require.Len(t, edits, 1)
}

func TestSubmitRoundTrip(t *testing.T) {
	repo := newStubSubmissionRepo()
	svc, _, _, _ := newSubmissionService(repo)

	created, err := svc.Submit(context.Background(), models.KindPetition, "user-1", dto.CreateSubmissionRequest{
		Title:    "Save The Park",
		Category: "environment",
		Goal:     2500,
		Sections: []dto.SectionInput{{Heading: "Why", Body: "Because"}},
	}, nil)
	require.NoError(t, err)

	fetched, err := svc.GetByID(context.Background(), created.ID, Actor{UserID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)
	require.Equal(t, created.Title, fetched.Title)
	require.Equal(t, created.Goal, fetched.Goal)
	require.Equal(t, models.StatusPending, fetched.Status)
}

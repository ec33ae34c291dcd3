package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/service"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
	"github.com/refreeg/moderation-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, kind models.SubmissionKind, ownerID string, req dto.CreateSubmissionRequest, uploads []service.MediaUpload) (*models.Submission, error)
	StageEdit(ctx context.Context, submissionID, ownerID string, content dto.ProposedContent) (*models.SubmissionEdit, error)
	Approve(ctx context.Context, submissionID string, actor service.Actor) (*models.Submission, error)
	Reject(ctx context.Context, submissionID string, actor service.Actor, reason string) error
	List(ctx context.Context, kind models.SubmissionKind, query dto.ListSubmissionsQuery) (*dto.ListSubmissionsResponse, error)
	Count(ctx context.Context, kind models.SubmissionKind, query dto.ListSubmissionsQuery) (int, error)
	GetByID(ctx context.Context, id string, actor service.Actor) (*models.Submission, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
	Share(ctx context.Context, id string) error
	ListPendingEdits(ctx context.Context, kind models.SubmissionKind, actor service.Actor) ([]models.SubmissionEdit, error)
}

// SubmissionHandler serves one submission family. The same handler type
// is mounted once for causes and once for petitions.
type SubmissionHandler struct {
	service submissionService
	kind    models.SubmissionKind
}

// NewSubmissionHandler constructs a handler bound to a kind.
func NewSubmissionHandler(service submissionService, kind models.SubmissionKind) *SubmissionHandler {
	return &SubmissionHandler{service: service, kind: kind}
}

// Create godoc
// @Summary Submit a new cause or petition
// @Tags Submissions
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /causes [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateSubmissionRequest
	var uploads []service.MediaUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		payload := c.PostForm("payload")
		if payload == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payload field is required"))
			return
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid multipart form"))
			return
		}
		for _, header := range form.File["cover"] {
			src, err := header.Open()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open cover"))
				return
			}
			defer src.Close()
			uploads = append(uploads, service.MediaUpload{Filename: header.Filename, Content: src, Cover: true})
		}
		for _, header := range form.File["media"] {
			src, err := header.Open()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media"))
				return
			}
			defer src.Close()
			uploads = append(uploads, service.MediaUpload{Filename: header.Filename, Content: src})
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}

	submission, err := h.service.Submit(c.Request.Context(), h.kind, claims.UserID, req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param category query string false "Category filter"
// @Param status query string false "Status filter"
// @Param owner query string false "Owner filter"
// @Success 200 {object} response.Envelope
// @Router /causes [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	var query dto.ListSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	result, err := h.service.List(c.Request.Context(), h.kind, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Items, &result.Pagination)
}

// Count godoc
// @Summary Count submissions
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /causes/count [get]
func (h *SubmissionHandler) Count(c *gin.Context) {
	var query dto.ListSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	total, err := h.service.Count(c.Request.Context(), h.kind, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": total}, nil)
}

// Get godoc
// @Summary Fetch a submission with its sections
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission id"
// @Success 200 {object} response.Envelope
// @Router /causes/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.GetByID(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Delete godoc
// @Summary Delete an owned submission
// @Tags Submissions
// @Param id path string true "Submission id"
// @Success 204
// @Router /causes/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	actor := actorFromContext(c)
	if actor.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Share godoc
// @Summary Record a share of a submission
// @Tags Submissions
// @Param id path string true "Submission id"
// @Success 200 {object} response.Envelope
// @Router /causes/{id}/share [post]
func (h *SubmissionHandler) Share(c *gin.Context) {
	if err := h.service.Share(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"shared": true}, nil)
}

// StageEdit godoc
// @Summary Stage an edit for review
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission id"
// @Success 201 {object} response.Envelope
// @Router /causes/{id}/edits [post]
func (h *SubmissionHandler) StageEdit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var content dto.ProposedContent
	if err := c.ShouldBindJSON(&content); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	edit, err := h.service.StageEdit(c.Request.Context(), c.Param("id"), claims.UserID, content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edit)
}

// Approve godoc
// @Summary Approve a submission, merging its newest pending edit
// @Tags Moderation
// @Produce json
// @Param id path string true "Submission id"
// @Success 200 {object} response.Envelope
// @Router /causes/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	submission, err := h.service.Approve(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Reject godoc
// @Summary Reject a submission and its pending edit
// @Tags Moderation
// @Accept json
// @Param id path string true "Submission id"
// @Success 204
// @Router /causes/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	var req dto.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	if err := h.service.Reject(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PendingEdits godoc
// @Summary List staged edits awaiting review
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /causes/edits/pending [get]
func (h *SubmissionHandler) PendingEdits(c *gin.Context) {
	edits, err := h.service.ListPendingEdits(c.Request.Context(), h.kind, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edits, nil)
}

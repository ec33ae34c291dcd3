package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/service"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
	"github.com/refreeg/moderation-api/pkg/response"
)

type verificationService interface {
	Submit(ctx context.Context, userID string, req dto.SubmitVerificationRequest, doc service.DocumentUpload) (*models.Verification, error)
	Review(ctx context.Context, id string, actor service.Actor, req dto.ReviewVerificationRequest) error
	Status(ctx context.Context, userID string) (*dto.VerificationStatusResponse, error)
	ListPending(ctx context.Context, actor service.Actor) ([]models.Verification, error)
	DocumentToken(ctx context.Context, id string, actor service.Actor) (string, time.Time, error)
	OpenDocument(ctx context.Context, token string) (*os.File, string, error)
}

// VerificationHandler serves the KYC endpoints.
type VerificationHandler struct {
	service verificationService
}

// NewVerificationHandler constructs the handler.
func NewVerificationHandler(service verificationService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Submit godoc
// @Summary Submit or resubmit identity verification
// @Tags Verifications
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "Identity document"
// @Success 201 {object} response.Envelope
// @Router /verifications [post]
func (h *VerificationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitVerificationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid verification payload"))
		return
	}
	fileHeader, err := c.FormFile("document")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identity document is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document"))
		return
	}
	defer src.Close()

	verification, err := h.service.Submit(c.Request.Context(), claims.UserID, req, service.DocumentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, verification)
}

// Status godoc
// @Summary Fetch the caller's verification status
// @Tags Verifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /verifications/me [get]
func (h *VerificationHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Review godoc
// @Summary Approve or reject a verification
// @Tags Moderation
// @Accept json
// @Param id path string true "Verification id"
// @Success 204
// @Router /verifications/{id}/review [post]
func (h *VerificationHandler) Review(c *gin.Context) {
	var req dto.ReviewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	if err := h.service.Review(c.Request.Context(), c.Param("id"), actorFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DocumentLink godoc
// @Summary Issue a time-limited download link for a verification document
// @Tags Moderation
// @Produce json
// @Param id path string true "Verification id"
// @Success 200 {object} response.Envelope
// @Router /verifications/{id}/document [get]
func (h *VerificationHandler) DocumentLink(c *gin.Context) {
	token, expiresAt, err := h.service.DocumentToken(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        fmt.Sprintf("/verifications/documents/%s", token),
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Stream a verification document for a valid token
// @Tags Moderation
// @Param token path string true "Signed download token"
// @Success 200
// @Router /verifications/documents/{token} [get]
func (h *VerificationHandler) Download(c *gin.Context) {
	file, filename, err := h.service.OpenDocument(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}

// Pending godoc
// @Summary List verifications awaiting review
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /verifications/pending [get]
func (h *VerificationHandler) Pending(c *gin.Context) {
	verifications, err := h.service.ListPending(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verifications, nil)
}

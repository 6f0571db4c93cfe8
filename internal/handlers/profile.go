package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/middleware"
)

// Reconciler runs profile edits against both stores.
type Reconciler interface {
	Submit(ctx context.Context, sess domain.Session, edit domain.ProfileEdit) domain.Outcome
	ResyncUsername(ctx context.Context, sess domain.Session, username string) domain.Outcome
	UpdateImage(ctx context.Context, sess domain.Session, img *domain.ProfileImageEdit) (domain.Outcome, bool)
}

// ImageSource turns an upload into an image edit. A nil header is a
// cancelled pick and yields a nil edit.
type ImageSource interface {
	FromMultipart(fh *multipart.FileHeader) (*domain.ProfileImageEdit, error)
}

// ProfileHandler is the HTTP surface of the profile form and image picker.
type ProfileHandler struct {
	reconciler Reconciler
	images     ImageSource
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(reconciler Reconciler, images ImageSource) *ProfileHandler {
	return &ProfileHandler{reconciler: reconciler, images: images}
}

// Register mounts the routes on g with m applied to each. g must already
// run middleware.JWTAuth.
func (h *ProfileHandler) Register(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("", h.Submit, m...)
	g.POST("/image", h.UpdateImage, m...)
	g.POST("/username/resync", h.ResyncUsername, m...)
}

// Submit reconciles a profile form submit and answers with its outcome.
// Backend failures are carried in the outcome, not the HTTP status.
func (h *ProfileHandler) Submit(c echo.Context) error {
	var req ProfileEditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: "Invalid request format."})
	}
	if err := c.Validate(&req); err != nil {
		return InvalidInput(c, err)
	}

	sess, err := h.session(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	out := h.reconciler.Submit(c.Request().Context(), sess, req.ToEdit())
	return c.JSON(http.StatusOK, out)
}

// UpdateImage runs the image flow for the "image" multipart field. No file
// means the picker was cancelled: nothing runs and 204 is returned.
func (h *ProfileHandler) UpdateImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		fh = nil
	case err != nil:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: "Invalid upload."})
	}

	img, err := h.images.FromMultipart(fh)
	if err != nil {
		middleware.FromContext(c.Request().Context()).Info("Rejected profile image upload",
			"event", "profile_image_rejected", "user_id", middleware.UserID(c), "error", err)
		return WriteError(c, err)
	}

	sess, err := h.session(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	out, ran := h.reconciler.UpdateImage(c.Request().Context(), sess, img)
	if !ran {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, out)
}

// ResyncUsername retries a failed username sync.
func (h *ProfileHandler) ResyncUsername(c echo.Context) error {
	var req ResyncUsernameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: "Invalid request format."})
	}
	if err := c.Validate(&req); err != nil {
		return InvalidInput(c, err)
	}

	sess, err := h.session(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	out := h.reconciler.ResyncUsername(c.Request().Context(), sess, req.Username)
	return c.JSON(http.StatusOK, out)
}

// session builds the caller's session from the verified token.
func (h *ProfileHandler) session(c echo.Context) (domain.Session, error) {
	sess := domain.Session{UserID: middleware.UserID(c), Token: middleware.Token(c)}
	if sess.UserID == "" {
		return sess, domain.ErrAuth
	}
	return sess, nil
}

func (h *ProfileHandler) sessionError(c echo.Context, err error) error {
	middleware.FromContext(c.Request().Context()).Warn("Could not build profile session",
		"event", "profile_session_failure", "error", err)
	return WriteError(c, err)
}

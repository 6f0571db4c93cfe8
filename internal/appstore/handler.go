package appstore

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/handlers"
	"github.com/nfrund/profilesync/internal/middleware"
)

// UserStore persists application user records.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*domain.UserRecord, error)
	Merge(ctx context.Context, userID string, rec domain.UserRecord) (*domain.UserRecord, error)
}

// Handler serves the application store's user API.
type Handler struct {
	store UserStore
}

// NewHandler creates a Handler backed by store.
func NewHandler(store UserStore) *Handler {
	return &Handler{store: store}
}

// Register mounts the routes on g. g must already run middleware.JWTAuth.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.GetUser)
	g.PATCH("/:id", h.PatchUser)
}

// patchUserRequest is the full record the profile coordinator sends. The
// username is empty until it has been mirrored from the identity provider.
type patchUserRequest struct {
	Username  string   `json:"username" validate:"omitempty,min=3,max=64"`
	FirstName string   `json:"firstName" validate:"max=100"`
	LastName  string   `json:"lastName" validate:"max=100"`
	Bio       string   `json:"bio" validate:"max=1000"`
	ImageURL  string   `json:"imageUrl" validate:"omitempty,url"`
	Posts     []string `json:"posts"`
}

// GetUser returns the caller's own record.
func (h *Handler) GetUser(c echo.Context) error {
	id, err := h.authorize(c)
	if err != nil {
		return handlers.WriteError(c, err)
	}
	rec, err := h.store.GetByID(c.Request().Context(), id)
	if err != nil {
		middleware.FromContext(c.Request().Context()).Warn("Failed to load user",
			"event", "appstore_get_failure", "user_id", id, "error", err)
		return handlers.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// PatchUser merges the submitted record into the caller's stored record.
func (h *Handler) PatchUser(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	id, err := h.authorize(c)
	if err != nil {
		return handlers.WriteError(c, err)
	}

	var req patchUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, handlers.ErrorResponse{Code: "invalid_input", Message: "Invalid request format."})
	}
	if err := c.Validate(&req); err != nil {
		return handlers.InvalidInput(c, err)
	}

	rec, err := h.store.Merge(ctx, id, domain.UserRecord{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		ImageURL:  req.ImageURL,
		Posts:     req.Posts,
	})
	if err != nil {
		logger.Error("Failed to merge user record", "event", "appstore_patch_failure", "user_id", id, "error", err)
		return handlers.WriteError(c, err)
	}

	logger.Info("User record updated", "event", "appstore_patch_success", "user_id", id)
	return c.JSON(http.StatusOK, rec)
}

// authorize allows callers to touch only their own record.
func (h *Handler) authorize(c echo.Context) (string, error) {
	subject := middleware.UserID(c)
	if subject == "" {
		return "", domain.ErrAuth
	}
	if id := c.Param("id"); id != subject {
		return "", domain.ErrForbidden
	}
	return subject, nil
}

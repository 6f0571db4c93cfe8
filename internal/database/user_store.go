package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/profilesync/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// UserTable is the table application user records live in.
const UserTable = "user"

// userRow is the stored shape of a user record. The record key is the
// identity provider's user id.
type userRow struct {
	ID        *surrealmodels.RecordID `json:"id,omitempty"`
	Username  string                  `json:"username"`
	Email     string                  `json:"email,omitempty"`
	FirstName string                  `json:"firstName,omitempty"`
	LastName  string                  `json:"lastName,omitempty"`
	Bio       string                  `json:"bio"`
	ImageURL  string                  `json:"imageUrl,omitempty"`
	Posts     []string                `json:"posts,omitempty"`
}

func (r *userRow) toDomain() domain.UserRecord {
	rec := domain.UserRecord{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
		ImageURL:  r.ImageURL,
		Posts:     r.Posts,
	}
	if r.ID != nil {
		rec.ID = fmt.Sprint(r.ID.ID)
	}
	return rec
}

// UserStore persists application user records.
type UserStore struct {
	client *Client[userRow]
}

// NewUserStore creates a UserStore over conn.
func NewUserStore(conn DBConnection) *UserStore {
	return &UserStore{client: NewClient[userRow](conn, UserTable)}
}

// GetByID returns the record for userID, or an error matching domain.ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, userID string) (*domain.UserRecord, error) {
	row, err := s.client.Select(ctx, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	rec := row.toDomain()
	return &rec, nil
}

// Merge writes the mutable fields of rec onto the stored record for userID.
// The record id and email are never changed by a profile merge, and an empty
// username leaves the stored one in place.
func (s *UserStore) Merge(ctx context.Context, userID string, rec domain.UserRecord) (*domain.UserRecord, error) {
	data := map[string]any{
		"bio": rec.Bio,
	}
	if rec.Username != "" {
		data["username"] = rec.Username
	}
	if rec.FirstName != "" {
		data["firstName"] = rec.FirstName
	}
	if rec.LastName != "" {
		data["lastName"] = rec.LastName
	}
	if rec.ImageURL != "" {
		data["imageUrl"] = rec.ImageURL
	}
	if rec.Posts != nil {
		data["posts"] = rec.Posts
	}

	row, err := s.client.Merge(ctx, userID, data)
	if err != nil {
		return nil, mapErr(err)
	}
	out := row.toDomain()
	return &out, nil
}

// mapErr lets callers match domain sentinels while keeping the database context.
func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, ErrInvalidInput):
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	default:
		return err
	}
}

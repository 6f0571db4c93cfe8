package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/nfrund/profilesync/internal/domain"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: domain.NewValidator()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// ProfileEditRequest is the body of a profile form submit. Values holds the
// current form values; Touched lists the fields the user edited.
type ProfileEditRequest struct {
	Values struct {
		Username  *string `json:"username"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Bio       *string `json:"bio"`
		Password  *string `json:"password"`
	} `json:"values"`
	Touched []string `json:"touched" validate:"dive,oneof=username firstName lastName bio password"`
}

// ToEdit converts the request into a normalized domain edit.
func (r *ProfileEditRequest) ToEdit() domain.ProfileEdit {
	touched := domain.NewFieldSet()
	for _, f := range r.Touched {
		touched.Add(domain.Field(f))
	}
	edit := domain.ProfileEdit{
		Username:  r.Values.Username,
		FirstName: r.Values.FirstName,
		LastName:  r.Values.LastName,
		Bio:       r.Values.Bio,
		Password:  r.Values.Password,
		Touched:   touched,
	}
	edit.Normalize()
	return edit
}

// ResyncUsernameRequest asks for the username to be pushed to the identity
// provider again after a failed sync.
type ResyncUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
}

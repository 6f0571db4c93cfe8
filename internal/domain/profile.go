package domain

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = NewValidator()

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Field names a profile form field.
type Field string

const (
	FieldUsername  Field = "username"
	FieldFirstName Field = "firstName"
	FieldLastName  Field = "lastName"
	FieldBio       Field = "bio"
	FieldPassword  Field = "password"
)

// FieldSet is an unordered set of fields.
type FieldSet map[Field]struct{}

// NewFieldSet builds a set from the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// Has reports whether f is in the set. A nil set has no members.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Add inserts f into the set.
func (s FieldSet) Add(f Field) {
	s[f] = struct{}{}
}

// Empty reports whether the set has no members.
func (s FieldSet) Empty() bool {
	return len(s) == 0
}

// Sorted returns the members in a stable order, mostly for logs and tests.
func (s FieldSet) Sorted() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProfileEdit is one submit of the profile form. Values for fields that are
// not in Touched are ignored even when present.
type ProfileEdit struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Password  *string `json:"password,omitempty"`
	Touched   FieldSet `json:"-"`
}

// Normalize trims the text fields and folds them to NFC so visually equal
// input produces identical writes in both stores.
func (e *ProfileEdit) Normalize() {
	for _, p := range []*string{e.Username, e.FirstName, e.LastName, e.Bio} {
		if p != nil {
			*p = norm.NFC.String(strings.TrimSpace(*p))
		}
	}
}

// Validate checks the submitted values. Only touched fields are validated;
// an untouched field is never written so its value does not matter.
func (e *ProfileEdit) Validate() error {
	touched := ProfileEdit{Touched: e.Touched}
	if e.Touched.Has(FieldUsername) {
		touched.Username = e.Username
	}
	if e.Touched.Has(FieldFirstName) {
		touched.FirstName = e.FirstName
	}
	if e.Touched.Has(FieldLastName) {
		touched.LastName = e.LastName
	}
	if e.Touched.Has(FieldBio) {
		touched.Bio = e.Bio
	}
	if err := validatorInstance.Struct(&touched); err != nil {
		return &ValidationError{Err: err}
	}
	if e.Touched.Has(FieldUsername) && (e.Username == nil || *e.Username == "") {
		return &ValidationError{Err: errors.New("username cannot be cleared")}
	}
	// The identity provider only receives non-nil values, so a touched
	// name without one would report success with nothing written.
	if e.Touched.Has(FieldFirstName) && e.FirstName == nil {
		return &ValidationError{Err: errors.New("firstName is touched but has no value")}
	}
	if e.Touched.Has(FieldLastName) && e.LastName == nil {
		return &ValidationError{Err: errors.New("lastName is touched but has no value")}
	}
	return nil
}

// ChangeClassification splits an edit into the fields each backend must receive.
type ChangeClassification struct {
	IdentityFields FieldSet
	AppStoreFields FieldSet
}

// ProfileImageEdit carries a new profile image selected by the user.
type ProfileImageEdit struct {
	// ImageData is the base64-encoded image without any data URI prefix.
	ImageData string `validate:"required,base64"`
	MIMEType  string `validate:"required,startswith=image/"`
}

// Validate checks the image payload.
func (e *ProfileImageEdit) Validate() error {
	if err := validatorInstance.Struct(e); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// DataURI renders the image the way the identity provider expects it.
func (e *ProfileImageEdit) DataURI() string {
	return "data:" + e.MIMEType + ";base64," + e.ImageData
}

// IdentityUpdate is the partial field object sent to the identity provider.
// Nil fields are omitted from the request, never cleared.
type IdentityUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

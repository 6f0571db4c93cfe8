package domain

// UserRecord is the application store's full view of a user. The identity
// provider owns username and names; the application store mirrors them next
// to the attributes only it holds.
type UserRecord struct {
	ID        string   `json:"id,omitempty"`
	Username  string   `json:"username" validate:"omitempty,min=3,max=64"`
	Email     string   `json:"email,omitempty" validate:"omitempty,email"`
	FirstName string   `json:"firstName,omitempty" validate:"max=100"`
	LastName  string   `json:"lastName,omitempty" validate:"max=100"`
	Bio       string   `json:"bio" validate:"max=1000"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Posts     []string `json:"posts,omitempty"`
}

// Validate runs the struct validation tags.
func (u *UserRecord) Validate() error {
	if err := validatorInstance.Struct(u); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Session is the explicit per-request context of the signed-in user.
// Callers build it once and pass it into every coordinator entry point.
type Session struct {
	UserID string
	// Token is the bearer token accepted by the application store.
	Token string
	// Record is the latest known application store record for UserID.
	Record UserRecord
}

package profile

import (
	"context"
	"sync"

	"github.com/nfrund/profilesync/internal/domain"
	"github.com/stretchr/testify/mock"
)

// mockIdentity implements IdentityStore for testing.
type mockIdentity struct {
	mock.Mock
	mu    sync.Mutex
	order *[]string
}

func (m *mockIdentity) UpdateProfileFields(ctx context.Context, userID string, update domain.IdentityUpdate) error {
	m.record("identity.update_fields")
	return m.Called(ctx, userID, update).Error(0)
}

func (m *mockIdentity) UpdateProfileImage(ctx context.Context, userID, dataURI string) error {
	m.record("identity.update_image")
	return m.Called(ctx, userID, dataURI).Error(0)
}

func (m *mockIdentity) SyncUsername(ctx context.Context, userID, username string) error {
	m.record("identity.sync_username")
	return m.Called(ctx, userID, username).Error(0)
}

func (m *mockIdentity) record(call string) {
	if m.order == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.order = append(*m.order, call)
}

// mockAppStore implements AppStore for testing.
type mockAppStore struct {
	mock.Mock
	order *[]string
}

func (m *mockAppStore) PatchUser(ctx context.Context, userID, token string, record domain.UserRecord) error {
	if m.order != nil {
		*m.order = append(*m.order, "appstore.patch_user")
	}
	return m.Called(ctx, userID, token, record).Error(0)
}

// mockRecordLoader implements RecordLoader for testing.
type mockRecordLoader struct {
	mock.Mock
	order *[]string
}

func (m *mockRecordLoader) GetUser(ctx context.Context, userID, token string) (*domain.UserRecord, error) {
	if m.order != nil {
		*m.order = append(*m.order, "appstore.get_user")
	}
	args := m.Called(ctx, userID, token)
	rec, _ := args.Get(0).(*domain.UserRecord)
	return rec, args.Error(1)
}

// recordingReporter captures every reported outcome.
type recordingReporter struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	err      error
}

func (r *recordingReporter) Report(ctx context.Context, outcome domain.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return r.err
}

func (r *recordingReporter) all() []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Outcome(nil), r.outcomes...)
}

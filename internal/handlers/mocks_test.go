package handlers_test

import (
	"context"

	"github.com/nfrund/profilesync/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Submit(ctx context.Context, sess domain.Session, edit domain.ProfileEdit) domain.Outcome {
	return m.Called(ctx, sess, edit).Get(0).(domain.Outcome)
}

func (m *mockReconciler) ResyncUsername(ctx context.Context, sess domain.Session, username string) domain.Outcome {
	return m.Called(ctx, sess, username).Get(0).(domain.Outcome)
}

func (m *mockReconciler) UpdateImage(ctx context.Context, sess domain.Session, img *domain.ProfileImageEdit) (domain.Outcome, bool) {
	args := m.Called(ctx, sess, img)
	return args.Get(0).(domain.Outcome), args.Bool(1)
}

type mockRecords struct {
	mock.Mock
}

func (m *mockRecords) GetUser(ctx context.Context, userID, token string) (*domain.UserRecord, error) {
	args := m.Called(ctx, userID, token)
	rec, _ := args.Get(0).(*domain.UserRecord)
	return rec, args.Error(1)
}

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) UpdateProfileFields(ctx context.Context, userID string, update domain.IdentityUpdate) error {
	return m.Called(ctx, userID, update).Error(0)
}

func (m *mockIdentity) UpdateProfileImage(ctx context.Context, userID, dataURI string) error {
	return m.Called(ctx, userID, dataURI).Error(0)
}

func (m *mockIdentity) SyncUsername(ctx context.Context, userID, username string) error {
	return m.Called(ctx, userID, username).Error(0)
}

type mockAppStore struct {
	mock.Mock
}

func (m *mockAppStore) PatchUser(ctx context.Context, userID, token string, record domain.UserRecord) error {
	return m.Called(ctx, userID, token, record).Error(0)
}

package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	identity *mockIdentity
	appStore *mockAppStore
	reporter *recordingReporter
	order    []string
	coord    *Coordinator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{reporter: &recordingReporter{}}
	f.identity = &mockIdentity{order: &f.order}
	f.appStore = &mockAppStore{order: &f.order}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.coord = NewCoordinator(f.identity, f.appStore, f.reporter, opts...)
	t.Cleanup(func() {
		f.identity.AssertExpectations(t)
		f.appStore.AssertExpectations(t)
	})
	return f
}

func testSession() domain.Session {
	return domain.Session{
		UserID: "user_123",
		Token:  "app-token",
		Record: domain.UserRecord{
			ID:       "user_123",
			Username: "alice",
			Email:    "alice@example.com",
			Bio:      "old bio",
			Posts:    []string{"posts/1"},
		},
	}
}

func TestCoordinator_Submit_NoOpForUnmappedFields(t *testing.T) {
	for name, touched := range map[string]domain.FieldSet{
		"nothing touched":       domain.NewFieldSet(),
		"only password touched": domain.NewFieldSet(domain.FieldPassword),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			edit := domain.ProfileEdit{
				Username: strPtr("changed-but-untouched"),
				Password: strPtr("hunter22"),
				Touched:  touched,
			}

			out := f.coord.Submit(context.Background(), testSession(), edit)

			assert.Equal(t, domain.StatusNoOp, out.Status)
			assert.False(t, out.IdentityWriteAttempted)
			assert.False(t, out.AppStoreWriteAttempted)
			assert.Empty(t, f.order, "no backend calls on a no-op submit")
			require.Len(t, f.reporter.all(), 1)
		})
	}
}

func TestCoordinator_Submit_FirstNameOnly(t *testing.T) {
	f := newFixture(t)
	f.identity.On("UpdateProfileFields", mock.Anything, "user_123",
		domain.IdentityUpdate{FirstName: strPtr("Alicia")}).Return(nil).Once()

	edit := domain.ProfileEdit{
		Username:  strPtr("alice"),
		FirstName: strPtr("Alicia"),
		LastName:  strPtr("Smith"),
		Touched:   domain.NewFieldSet(domain.FieldFirstName),
	}
	out := f.coord.Submit(context.Background(), testSession(), edit)

	assert.Equal(t, domain.StatusUpdated, out.Status)
	assert.Equal(t, []string{"identity.update_fields"}, f.order)
	assert.False(t, out.AppStoreWriteAttempted)
	f.appStore.AssertNotCalled(t, "PatchUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_Submit_FirstAndLastName(t *testing.T) {
	f := newFixture(t)
	f.identity.On("UpdateProfileFields", mock.Anything, "user_123",
		domain.IdentityUpdate{FirstName: strPtr("Alicia"), LastName: strPtr("Jones")}).Return(nil).Once()

	edit := domain.ProfileEdit{
		FirstName: strPtr("Alicia"),
		LastName:  strPtr("Jones"),
		Touched:   domain.NewFieldSet(domain.FieldFirstName, domain.FieldLastName),
	}
	out := f.coord.Submit(context.Background(), testSession(), edit)

	assert.Equal(t, domain.StatusUpdated, out.Status)
	assert.Equal(t, "Profile Updated", out.Message)
	assert.True(t, out.IdentityWriteAttempted)
	assert.Equal(t, domain.BoolPtr(true), out.IdentityWriteSucceeded)
	assert.False(t, out.AppStoreWriteAttempted)
	assert.Equal(t, fixedNow, out.CompletedAt)
}

func TestCoordinator_Submit_BioOnlySendsMergedRecord(t *testing.T) {
	f := newFixture(t)
	want := testSession().Record
	want.Bio = "new bio"
	f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", want).Return(nil).Once()

	edit := domain.ProfileEdit{
		Username: strPtr("untouched-value"),
		Bio:      strPtr("new bio"),
		Touched:  domain.NewFieldSet(domain.FieldBio),
	}
	out := f.coord.Submit(context.Background(), testSession(), edit)

	assert.Equal(t, domain.StatusUpdated, out.Status)
	assert.Equal(t, []string{"appstore.patch_user"}, f.order, "no identity calls for a bio-only edit")
	assert.False(t, out.UsernameSyncAttempted)
}

func TestCoordinator_Submit_UsernameAndBio(t *testing.T) {
	edit := domain.ProfileEdit{
		Username: strPtr("alice2"),
		Bio:      strPtr("new bio"),
		Touched:  domain.NewFieldSet(domain.FieldUsername, domain.FieldBio),
	}
	merged := testSession().Record
	merged.Username = "alice2"
	merged.Bio = "new bio"

	t.Run("identity first, then patch, then one username sync", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123",
			domain.IdentityUpdate{Username: strPtr("alice2")}).Return(nil).Once()
		f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", merged).Return(nil).Once()
		f.identity.On("SyncUsername", mock.Anything, "user_123", "alice2").Return(nil).Once()

		out := f.coord.Submit(context.Background(), testSession(), edit)

		assert.Equal(t, domain.StatusUpdated, out.Status)
		assert.Equal(t, []string{"identity.update_fields", "appstore.patch_user", "identity.sync_username"}, f.order)
		assert.True(t, out.UsernameSyncAttempted)
		assert.Equal(t, domain.BoolPtr(true), out.UsernameSyncSucceeded)
	})

	t.Run("identity failure skips the application store", func(t *testing.T) {
		f := newFixture(t)
		idErr := &domain.IdentityError{Status: 422, Code: "form_identifier_exists", Message: "That username is taken. Please try another."}
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(idErr).Once()

		out := f.coord.Submit(context.Background(), testSession(), edit)

		assert.Equal(t, domain.StatusFailed, out.Status)
		assert.Equal(t, domain.KindIdentity, out.ErrorKind)
		assert.Equal(t, "That username is taken. Please try another.", out.Message)
		assert.Equal(t, []string{"identity.update_fields"}, f.order)
		assert.False(t, out.AppStoreWriteAttempted)
		assert.Nil(t, out.AppStoreWriteSucceeded)
		require.Len(t, f.reporter.all(), 1)
	})

	t.Run("identity auth failure reports auth error", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).
			Return(&domain.IdentityError{Status: 401, Code: "authentication_invalid", Message: "Session expired"}).Once()

		out := f.coord.Submit(context.Background(), testSession(), edit)

		assert.Equal(t, domain.StatusAuthError, out.Status)
		assert.Equal(t, domain.KindAuth, out.ErrorKind)
		assert.Equal(t, []string{"identity.update_fields"}, f.order)
	})

	t.Run("patch failure after identity success is partial", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(nil).Once()
		f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", merged).
			Return(&domain.NetworkError{Status: 503, Message: "backend unavailable"}).Once()

		out := f.coord.Submit(context.Background(), testSession(), edit)

		assert.Equal(t, domain.StatusPartialFailure, out.Status)
		assert.Equal(t, domain.KindNetwork, out.ErrorKind)
		assert.Equal(t, "backend unavailable", out.Message)
		assert.Equal(t, domain.BoolPtr(true), out.IdentityWriteSucceeded)
		assert.Equal(t, domain.BoolPtr(false), out.AppStoreWriteSucceeded)
		assert.False(t, out.UsernameSyncAttempted, "no sync after a failed patch")
	})

	t.Run("username sync failure is partial", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(nil).Once()
		f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", merged).Return(nil).Once()
		f.identity.On("SyncUsername", mock.Anything, "user_123", "alice2").
			Return(&domain.IdentityError{Status: 500, Message: "internal"}).Once()

		out := f.coord.Submit(context.Background(), testSession(), edit)

		assert.Equal(t, domain.StatusPartialFailure, out.Status)
		assert.Equal(t, domain.BoolPtr(true), out.AppStoreWriteSucceeded)
		assert.Equal(t, domain.BoolPtr(false), out.UsernameSyncSucceeded)
	})
}

func TestCoordinator_Submit_BioPatchServerError(t *testing.T) {
	f := newFixture(t)
	f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", mock.Anything).
		Return(&domain.NetworkError{Status: 500, Message: "Internal Server Error"}).Once()

	edit := domain.ProfileEdit{Bio: strPtr("new bio"), Touched: domain.NewFieldSet(domain.FieldBio)}
	out := f.coord.Submit(context.Background(), testSession(), edit)

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Equal(t, domain.KindNetwork, out.ErrorKind)
	assert.False(t, out.IdentityWriteAttempted, "identity store untouched")
	assert.Equal(t, []string{"appstore.patch_user"}, f.order)
}

func TestCoordinator_Submit_InvalidEditMakesNoCalls(t *testing.T) {
	f := newFixture(t)
	edit := domain.ProfileEdit{Username: strPtr("x"), Touched: domain.NewFieldSet(domain.FieldUsername)}

	out := f.coord.Submit(context.Background(), testSession(), edit)

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Equal(t, domain.KindInvalid, out.ErrorKind)
	assert.Empty(t, f.order)
	assert.Len(t, f.reporter.all(), 1)
}

func TestCoordinator_Submit_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).
		Run(func(args mock.Arguments) {
			// The caller goes away while the identity write is in flight.
			cancel()
		}).Return(nil).Once()
	f.appStore.On("PatchUser", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), "user_123", "app-token", mock.Anything).Return(nil).Once()

	edit := domain.ProfileEdit{
		FirstName: strPtr("Alicia"),
		Bio:       strPtr("bio"),
		Touched:   domain.NewFieldSet(domain.FieldFirstName, domain.FieldBio),
	}
	out := f.coord.Submit(ctx, testSession(), edit)

	assert.Equal(t, domain.StatusUpdated, out.Status)
	assert.Len(t, f.reporter.all(), 1)
}

func TestCoordinator_ReporterFailureStillReturnsOutcome(t *testing.T) {
	f := newFixture(t)
	f.reporter.err = errors.New("bus closed")

	out := f.coord.Submit(context.Background(), testSession(), domain.ProfileEdit{})

	assert.Equal(t, domain.StatusNoOp, out.Status)
	assert.Len(t, f.reporter.all(), 1)
}

func TestCoordinator_ResyncUsername(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("SyncUsername", mock.Anything, "user_123", "alice2").Return(nil).Once()

		out := f.coord.ResyncUsername(context.Background(), testSession(), "alice2")

		assert.Equal(t, domain.StatusUpdated, out.Status)
		assert.True(t, out.UsernameSyncAttempted)
	})

	t.Run("auth failure", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("SyncUsername", mock.Anything, "user_123", "alice2").
			Return(&domain.IdentityError{Status: 401, Message: "Unauthorized"}).Once()

		out := f.coord.ResyncUsername(context.Background(), testSession(), "alice2")

		assert.Equal(t, domain.StatusAuthError, out.Status)
	})
}

func TestCoordinator_UpdateImage(t *testing.T) {
	img := &domain.ProfileImageEdit{ImageData: "iVBORw0KGgo=", MIMEType: "image/png"}

	t.Run("cancelled picker makes no calls and reports nothing", func(t *testing.T) {
		f := newFixture(t)

		_, reported := f.coord.UpdateImage(context.Background(), testSession(), nil)

		assert.False(t, reported)
		assert.Empty(t, f.order)
		assert.Empty(t, f.reporter.all())
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileImage", mock.Anything, "user_123", "data:image/png;base64,iVBORw0KGgo=").Return(nil).Once()

		out, reported := f.coord.UpdateImage(context.Background(), testSession(), img)

		require.True(t, reported)
		assert.Equal(t, domain.FlowImage, out.Flow)
		assert.Equal(t, domain.StatusImageUpdated, out.Status)
		assert.Equal(t, "Profile Image Updated", out.Message)
		assert.False(t, out.AppStoreWriteAttempted)
	})

	t.Run("structured identity error is reported with its message", func(t *testing.T) {
		f := newFixture(t)
		f.identity.On("UpdateProfileImage", mock.Anything, "user_123", mock.Anything).
			Return(&domain.IdentityError{Status: 422, Code: "image_too_large", Message: "Image exceeds the size limit"}).Once()

		out, reported := f.coord.UpdateImage(context.Background(), testSession(), img)

		require.True(t, reported)
		assert.Equal(t, domain.StatusImageFailed, out.Status)
		assert.Equal(t, "Image exceeds the size limit", out.Message)
		require.Len(t, f.reporter.all(), 1)
		assert.Equal(t, domain.FlowImage, f.reporter.all()[0].Flow)
	})
}

func TestCoordinator_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	f := newFixture(t, WithMetrics(m))
	f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(nil).Once()

	f.coord.Submit(context.Background(), testSession(), domain.ProfileEdit{
		LastName: strPtr("Jones"),
		Touched:  domain.NewFieldSet(domain.FieldLastName),
	})
	f.coord.Submit(context.Background(), testSession(), domain.ProfileEdit{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("form", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("form", "noop")))
}

func TestCoordinator_Submit_RecordLoader(t *testing.T) {
	newLoaderFixture := func(t *testing.T) (*fixture, *mockRecordLoader) {
		loader := &mockRecordLoader{}
		f := newFixture(t, WithRecordLoader(loader))
		loader.order = &f.order
		t.Cleanup(func() { loader.AssertExpectations(t) })
		return f, loader
	}
	sess := domain.Session{UserID: "user_123", Token: "app-token"}

	t.Run("identity only edit never loads the record", func(t *testing.T) {
		f, loader := newLoaderFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(nil).Once()

		edit := domain.ProfileEdit{FirstName: strPtr("Bob"), Touched: domain.NewFieldSet(domain.FieldFirstName)}
		out := f.coord.Submit(context.Background(), sess, edit)

		assert.Equal(t, domain.StatusUpdated, out.Status)
		assert.Equal(t, []string{"identity.update_fields"}, f.order)
		loader.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no-op edit makes no calls", func(t *testing.T) {
		f, loader := newLoaderFixture(t)

		edit := domain.ProfileEdit{Password: strPtr("hunter22"), Touched: domain.NewFieldSet(domain.FieldPassword)}
		out := f.coord.Submit(context.Background(), sess, edit)

		assert.Equal(t, domain.StatusNoOp, out.Status)
		assert.Empty(t, f.order)
		loader.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bio edit merges into the loaded record", func(t *testing.T) {
		f, loader := newLoaderFixture(t)
		stored := testSession().Record
		loader.On("GetUser", mock.Anything, "user_123", "app-token").Return(&stored, nil).Once()
		want := stored
		want.Bio = "new bio"
		f.appStore.On("PatchUser", mock.Anything, "user_123", "app-token", want).Return(nil).Once()

		edit := domain.ProfileEdit{Bio: strPtr("new bio"), Touched: domain.NewFieldSet(domain.FieldBio)}
		out := f.coord.Submit(context.Background(), sess, edit)

		assert.Equal(t, domain.StatusUpdated, out.Status)
		assert.Equal(t, []string{"appstore.get_user", "appstore.patch_user"}, f.order)
	})

	t.Run("load failure after identity write is a partial failure", func(t *testing.T) {
		f, loader := newLoaderFixture(t)
		f.identity.On("UpdateProfileFields", mock.Anything, "user_123", mock.Anything).Return(nil).Once()
		loader.On("GetUser", mock.Anything, "user_123", "app-token").
			Return(nil, &domain.NetworkError{Status: 500, Message: "boom"}).Once()

		edit := domain.ProfileEdit{
			FirstName: strPtr("Bob"),
			Bio:       strPtr("new bio"),
			Touched:   domain.NewFieldSet(domain.FieldFirstName, domain.FieldBio),
		}
		out := f.coord.Submit(context.Background(), sess, edit)

		assert.Equal(t, domain.StatusPartialFailure, out.Status)
		assert.Equal(t, domain.KindNetwork, out.ErrorKind)
		assert.True(t, *out.IdentityWriteSucceeded)
		assert.False(t, *out.AppStoreWriteSucceeded)
		assert.Equal(t, []string{"identity.update_fields", "appstore.get_user"}, f.order)
		f.appStore.AssertNotCalled(t, "PatchUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, f.reporter.all(), 1)
	})
}

package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/metrics"
)

// IdentityStore writes identity-owned fields to the identity provider.
type IdentityStore interface {
	UpdateProfileFields(ctx context.Context, userID string, update domain.IdentityUpdate) error
	UpdateProfileImage(ctx context.Context, userID, dataURI string) error
	SyncUsername(ctx context.Context, userID, username string) error
}

// AppStore writes the full user record to the application backend.
type AppStore interface {
	PatchUser(ctx context.Context, userID, token string, record domain.UserRecord) error
}

// RecordLoader fetches the caller's current application store record.
type RecordLoader interface {
	GetUser(ctx context.Context, userID, token string) (*domain.UserRecord, error)
}

// Reporter receives exactly one outcome per user action.
type Reporter interface {
	Report(ctx context.Context, outcome domain.Outcome) error
}

const (
	msgUpdated      = "Profile Updated"
	msgNoOp         = "No changes to save"
	msgImageUpdated = "Profile Image Updated"
	msgResynced     = "Username synchronized"
)

// Coordinator runs the dual-write sequence for one user action at a time.
// It holds no per-submit state; every call builds its own outcome.
type Coordinator struct {
	identity IdentityStore
	appStore AppStore
	records  RecordLoader
	reporter Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records outcomes and call latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithRecordLoader makes Submit fetch the current record right before an
// application store write instead of using Session.Record. The record is
// only fetched when the edit reaches the application store.
func WithRecordLoader(l RecordLoader) Option {
	return func(c *Coordinator) { c.records = l }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides the time source used for CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(identity IdentityStore, appStore AppStore, reporter Reporter, opts ...Option) *Coordinator {
	c := &Coordinator{
		identity: identity,
		appStore: appStore,
		reporter: reporter,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit reconciles one profile form submit across both stores.
//
// Identity writes always precede the application store write, and an
// identity failure stops the sequence. Once started, the sequence ignores
// cancellation of ctx so writes already in flight finish and the outcome is
// still reported; each backend call is bounded by its client timeout.
func (c *Coordinator) Submit(ctx context.Context, sess domain.Session, edit domain.ProfileEdit) domain.Outcome {
	ctx = context.WithoutCancel(ctx)
	out := domain.NewOutcome(domain.FlowForm, sess.UserID)
	log := c.logger.With("user_id", sess.UserID, "outcome_id", out.ID)

	if err := edit.Validate(); err != nil {
		out.Fail(domain.StatusFailed, err)
		return c.finish(ctx, out)
	}

	changes := Classify(edit)
	if changes.IdentityFields.Empty() && changes.AppStoreFields.Empty() {
		out.Succeed(domain.StatusNoOp, msgNoOp)
		return c.finish(ctx, out)
	}
	log.DebugContext(ctx, "Profile changes classified", "event", "profile_classified",
		"identity_fields", changes.IdentityFields.Sorted(),
		"appstore_fields", changes.AppStoreFields.Sorted())

	if !changes.IdentityFields.Empty() {
		out.IdentityWriteAttempted = true
		update := identityUpdate(edit, changes.IdentityFields)
		err := c.timed("identity", "update_fields", func() error {
			return c.identity.UpdateProfileFields(ctx, sess.UserID, update)
		})
		out.IdentityWriteSucceeded = domain.BoolPtr(err == nil)
		if err != nil {
			status := domain.StatusFailed
			if errors.Is(err, domain.ErrAuth) {
				status = domain.StatusAuthError
			}
			log.WarnContext(ctx, "Identity update failed, skipping application store", "event", "profile_identity_failure", "error", err)
			out.Fail(status, err)
			return c.finish(ctx, out)
		}
	}

	if !changes.AppStoreFields.Empty() {
		out.AppStoreWriteAttempted = true
		var record domain.UserRecord
		current, err := c.currentRecord(ctx, sess)
		if err == nil {
			record = mergeRecord(current, edit, changes.AppStoreFields)
			err = c.timed("appstore", "patch_user", func() error {
				return c.appStore.PatchUser(ctx, sess.UserID, sess.Token, record)
			})
		}
		out.AppStoreWriteSucceeded = domain.BoolPtr(err == nil)
		if err != nil {
			status := domain.StatusFailed
			if out.IdentityWriteAttempted {
				status = domain.StatusPartialFailure
			}
			log.WarnContext(ctx, "Application store update failed", "event", "profile_appstore_failure", "error", err)
			out.Fail(status, err)
			return c.finish(ctx, out)
		}

		if changes.AppStoreFields.Has(domain.FieldUsername) {
			out.UsernameSyncAttempted = true
			err := c.timed("identity", "sync_username", func() error {
				return c.identity.SyncUsername(ctx, sess.UserID, record.Username)
			})
			out.UsernameSyncSucceeded = domain.BoolPtr(err == nil)
			if err != nil {
				// The application store is now ahead of the identity provider.
				// ResyncUsername replays the mirror write.
				log.WarnContext(ctx, "Username sync after application store write failed", "event", "profile_username_sync_failure", "error", err)
				out.Fail(domain.StatusPartialFailure, err)
				return c.finish(ctx, out)
			}
		}
	}

	out.Succeed(domain.StatusUpdated, msgUpdated)
	return c.finish(ctx, out)
}

// ResyncUsername mirrors username into the identity provider again. It is
// idempotent and meant for recovering from a failed post-write sync.
func (c *Coordinator) ResyncUsername(ctx context.Context, sess domain.Session, username string) domain.Outcome {
	ctx = context.WithoutCancel(ctx)
	out := domain.NewOutcome(domain.FlowForm, sess.UserID)

	edit := domain.ProfileEdit{Username: &username, Touched: domain.NewFieldSet(domain.FieldUsername)}
	if err := edit.Validate(); err != nil {
		out.Fail(domain.StatusFailed, err)
		return c.finish(ctx, out)
	}

	out.UsernameSyncAttempted = true
	err := c.timed("identity", "sync_username", func() error {
		return c.identity.SyncUsername(ctx, sess.UserID, username)
	})
	out.UsernameSyncSucceeded = domain.BoolPtr(err == nil)
	switch {
	case err == nil:
		out.Succeed(domain.StatusUpdated, msgResynced)
	case errors.Is(err, domain.ErrAuth):
		out.Fail(domain.StatusAuthError, err)
	default:
		out.Fail(domain.StatusFailed, err)
	}
	return c.finish(ctx, out)
}

// UpdateImage runs the out-of-band profile image flow. A nil image means
// the user cancelled the picker: nothing is called and nothing is reported,
// signalled by the false return.
func (c *Coordinator) UpdateImage(ctx context.Context, sess domain.Session, img *domain.ProfileImageEdit) (domain.Outcome, bool) {
	if img == nil {
		c.logger.DebugContext(ctx, "Image selection cancelled", "event", "profile_image_cancelled", "user_id", sess.UserID)
		return domain.Outcome{}, false
	}
	ctx = context.WithoutCancel(ctx)
	out := domain.NewOutcome(domain.FlowImage, sess.UserID)

	if err := img.Validate(); err != nil {
		out.Fail(domain.StatusImageFailed, err)
		return c.finish(ctx, out), true
	}

	out.IdentityWriteAttempted = true
	err := c.timed("identity", "update_image", func() error {
		return c.identity.UpdateProfileImage(ctx, sess.UserID, img.DataURI())
	})
	out.IdentityWriteSucceeded = domain.BoolPtr(err == nil)
	if err != nil {
		c.logger.WarnContext(ctx, "Profile image update failed", "event", "profile_image_failure", "user_id", sess.UserID, "error", err)
		out.Fail(domain.StatusImageFailed, err)
		return c.finish(ctx, out), true
	}
	out.Succeed(domain.StatusImageUpdated, msgImageUpdated)
	return c.finish(ctx, out), true
}

// currentRecord returns the record the application store edit merges into.
func (c *Coordinator) currentRecord(ctx context.Context, sess domain.Session) (domain.UserRecord, error) {
	if c.records == nil {
		return sess.Record, nil
	}
	var rec *domain.UserRecord
	err := c.timed("appstore", "get_user", func() error {
		var err error
		rec, err = c.records.GetUser(ctx, sess.UserID, sess.Token)
		return err
	})
	if err != nil {
		return domain.UserRecord{}, err
	}
	return *rec, nil
}

func (c *Coordinator) timed(backend, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.metrics.ObserveBackendCall(backend, op, time.Since(start))
	return err
}

// finish stamps, records and reports the outcome exactly once.
func (c *Coordinator) finish(ctx context.Context, out *domain.Outcome) domain.Outcome {
	out.CompletedAt = c.now().UTC()
	c.metrics.IncrementOutcome(string(out.Flow), string(out.Status))

	c.logger.InfoContext(ctx, "Profile reconciliation finished", "event", "profile_outcome",
		"user_id", out.UserID, "outcome_id", out.ID, "flow", out.Flow,
		"status", out.Status, "error_kind", out.ErrorKind)

	if c.reporter != nil {
		if err := c.reporter.Report(ctx, *out); err != nil {
			c.logger.ErrorContext(ctx, "Failed to report outcome", "event", "profile_report_failure", "outcome_id", out.ID, "error", err)
		}
	}
	return *out
}

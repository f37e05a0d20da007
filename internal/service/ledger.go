package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/store"
)

// ErrInvalidStatus is returned when a status transition names an undefined
// operation.
var ErrInvalidStatus = errors.New("invalid status")

// Ledger owns user moderation status and its append-only audit log. Every
// transition writes the cached users row and the reasons entry in one
// transaction, so readers never observe one without the other.
type Ledger struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a Ledger on top of the given store.
func NewLedger(s *store.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: s, logger: logger, now: time.Now}
}

// SetStatus records a status transition for uid, attributed to actingRole
// with a free-text justification. op=StatusNone is a valid, audited
// "un-flag" action.
func (l *Ledger) SetStatus(ctx context.Context, uid int64, op model.Status, actingRole, reason string) error {
	if !op.Valid() {
		return ErrInvalidStatus
	}

	id, err := l.store.ApplyStatus(ctx, uid, op, actingRole, reason, l.now().UnixMilli())
	if err != nil {
		l.logger.Error("status transition failed", "uid", uid, "op", op.String(), "error", err)
		return err
	}

	l.logger.Info("user status changed",
		"uid", uid, "op", op.String(), "op_role", actingRole, "reason_id", id)
	return nil
}

// User returns the cached moderation state for uid. store.ErrNotFound means
// the uid has never been operated on; the boundary renders that as the
// neutral user rather than an error.
func (l *Ledger) User(ctx context.Context, uid int64) (*model.User, error) {
	return l.store.GetUser(ctx, uid)
}

// LastReason returns the most recent audit entry for uid, latest by
// insertion order. store.ErrNotFound when the uid has no audit trail.
func (l *Ledger) LastReason(ctx context.Context, uid int64) (*model.Reason, error) {
	return l.store.LastReason(ctx, uid)
}

// CountDenylists counts how many times uid has been denylisted over its
// whole history.
func (l *Ledger) CountDenylists(ctx context.Context, uid int64) (int64, error) {
	return l.store.CountReasonsByOp(ctx, uid, model.StatusDenylisted)
}

// CountByStatus counts users currently at the given status.
func (l *Ledger) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	return l.store.CountUsersByStatus(ctx, status)
}

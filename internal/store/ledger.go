package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modledger/modledger/internal/model"
)

// GetUser returns the cached moderation state for uid. ErrNotFound means the
// uid has never been the subject of an operation, which callers may render as
// the neutral state.
func (s *Store) GetUser(ctx context.Context, uid int64) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, "SELECT uid, status, last_reason FROM users WHERE uid = ?", uid); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ApplyStatus records a status transition for uid: the users row is upserted
// and a reasons row is appended in a single transaction, so the cached status
// can never diverge from the audit log. Returns the id of the new reasons row.
func (s *Store) ApplyStatus(ctx context.Context, uid int64, op model.Status, opRole, reason string, opTime int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin status transition: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO users (uid, status, last_reason) VALUES (?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET status = excluded.status, last_reason = excluded.last_reason`
	if _, err := tx.ExecContext(ctx, upsert, uid, op.Int(), reason); err != nil {
		return 0, fmt.Errorf("upsert user status: %w", err)
	}

	const appendReason = `INSERT INTO reasons (uid, op, op_role, reason, op_time) VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, appendReason, uid, op.Int(), opRole, reason, opTime)
	if err != nil {
		return 0, fmt.Errorf("append reason: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get reason id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit status transition: %w", err)
	}
	return id, nil
}

// LastReason returns the reasons row for uid with the greatest id. Insertion
// order, not op_time, decides recency so that clock skew cannot reorder the
// audit trail.
func (s *Store) LastReason(ctx context.Context, uid int64) (*model.Reason, error) {
	var r model.Reason
	const q = `SELECT id, uid, op, op_role, COALESCE(reason, '') AS reason, op_time
		FROM reasons WHERE uid = ? ORDER BY id DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &r, q, uid); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get last reason: %w", err)
	}
	return &r, nil
}

// CountReasonsByOp counts audit entries for uid with the given operation.
func (s *Store) CountReasonsByOp(ctx context.Context, uid int64, op model.Status) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM reasons WHERE uid = ? AND op = ?", uid, op.Int()); err != nil {
		return 0, fmt.Errorf("count reasons: %w", err)
	}
	return n, nil
}

// CountUsersByStatus counts users currently cached at the given status. This
// is a point-in-time aggregate over the users table, not the audit log.
func (s *Store) CountUsersByStatus(ctx context.Context, status model.Status) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE status = ?", status.Int()); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

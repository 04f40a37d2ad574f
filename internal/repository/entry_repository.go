package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// EntryRepo reads and writes entry_logs.
type EntryRepo struct {
	db DBTX
	tx *TxRunner
}

// NewEntryRepo returns a repo on db. runner may be nil for repos that
// never call Record.
func NewEntryRepo(db DBTX, runner *TxRunner) *EntryRepo { return &EntryRepo{db: db, tx: runner} }

// Record appends e after allow accepted the user's previous action. The
// user row is locked for the duration, so concurrent records of the same
// user run one after the other and each sees the action written before it.
func (r *EntryRepo) Record(ctx context.Context, e *model.EntryLog, allow func(last model.EntryAction) error) error {
	return r.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", e.UserID).Scan(&id)
		if err != nil {
			return notFound(err)
		}
		repo := NewEntryRepo(tx, nil)
		last, err := repo.LastAction(ctx, e.UserID)
		if err != nil {
			return err
		}
		if err := allow(last); err != nil {
			return err
		}
		return repo.Create(ctx, e)
	})
}

// Create appends an entry or exit record.
func (r *EntryRepo) Create(ctx context.Context, e *model.EntryLog) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO entry_logs (id,user_id,action,occurred_at) VALUES (?,?,?,?)",
		e.ID, e.UserID, string(e.Action), e.OccurredAt)
	return err
}

// LastAction returns the most recent action of userID, or "" when the
// user never entered.
func (r *EntryRepo) LastAction(ctx context.Context, userID string) (model.EntryAction, error) {
	var action string
	err := r.db.QueryRowContext(ctx,
		"SELECT action FROM entry_logs WHERE user_id=? ORDER BY occurred_at DESC, id DESC LIMIT 1", userID).Scan(&action)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.EntryAction(action), nil
}

// ListByUser returns the latest records of userID, newest first.
func (r *EntryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.EntryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,user_id,action,occurred_at FROM entry_logs WHERE user_id=? ORDER BY occurred_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EntryLog
	for rows.Next() {
		var (
			e      model.EntryLog
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = model.EntryAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

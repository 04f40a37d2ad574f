package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

const userColumns = "id,email,password_hash,last_name,first_name,phone_number,zip_code,prefecture,city,address,created_at,updated_at"

// UserRepo reads and writes the users table.
type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *UserRepo) WithTx(tx *sql.Tx) *UserRepo { return &UserRepo{db: tx} }

// Create inserts u. ID and timestamps must be set by the caller; the
// email is expected to be normalized already.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id,email,password_hash,last_name,first_name,phone_number,zip_code,prefecture,city,address,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.LastName, u.FirstName, u.PhoneNumber,
		u.ZipCode, u.Prefecture, u.City, u.Address, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// EmailRegistered reports whether a user already owns email.
func (r *UserRepo) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email=?", email).Scan(&n)
	return n > 0, err
}

// UpdateProfile overwrites the editable profile columns of u.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_name=?, first_name=?, phone_number=?, zip_code=?, prefecture=?, city=?, address=?, updated_at=?
		 WHERE id=?`,
		u.LastName, u.FirstName, u.PhoneNumber, u.ZipCode, u.Prefecture, u.City, u.Address, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too, so confirm existence
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// userDependents lists the tables whose rows block a physical user delete.
var userDependents = []string{"dogs", "posts", "comments", "likes", "entry_logs"}

// Delete removes a user that owns no dependent records. Approved
// applications keep their snapshot but lose the link. Must run inside a
// transaction (see TxRunner) so the checks and the delete are atomic.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	var exists int
	if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? FOR UPDATE", id).Scan(&exists); err != nil {
		return notFound(err)
	}
	for _, table := range userDependents {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id=?", table)
		if table == "dogs" {
			q = "SELECT COUNT(*) FROM dogs WHERE owner_id=?"
		}
		if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: user still has %s", ErrConflict, table)
		}
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE applications SET user_id=NULL, updated_at=? WHERE user_id=?", time.Now().UTC(), id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.LastName, &u.FirstName, &u.PhoneNumber,
		&u.ZipCode, &u.Prefecture, &u.City, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

// UserDeleter deletes users in a transaction of their own.
type UserDeleter struct{ tx *TxRunner }

func NewUserDeleter(runner *TxRunner) *UserDeleter { return &UserDeleter{tx: runner} }

// DeleteUser locks and deletes the user, see UserRepo.Delete.
func (d *UserDeleter) DeleteUser(ctx context.Context, id string) error {
	return d.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		return NewUserRepo(tx).Delete(ctx, id)
	})
}

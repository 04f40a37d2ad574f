package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

const adminColumns = "id,email,password_hash,last_name,first_name,role,is_active,last_login,created_at,updated_at"

// AdminRepo reads and writes the admin_users table.
type AdminRepo struct{ db DBTX }

func NewAdminRepo(db DBTX) *AdminRepo { return &AdminRepo{db: db} }

// Create inserts a new admin account.
func (r *AdminRepo) Create(ctx context.Context, a *model.AdminUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_users (id,email,password_hash,last_name,first_name,role,is_active,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Email, a.PasswordHash, a.LastName, a.FirstName, string(a.Role), a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an admin regardless of is_active.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admin_users WHERE email=? LIMIT 1", email))
}

// ActiveByEmail fetches an admin by email only when the account is active.
func (r *AdminRepo) ActiveByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admin_users WHERE email=? AND is_active=TRUE LIMIT 1", email))
}

// TouchLastLogin records a successful login.
func (r *AdminRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE admin_users SET last_login=? WHERE id=?", at, id)
	return err
}

func scanAdmin(row rowScanner) (model.AdminUser, error) {
	var (
		a         model.AdminUser
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.LastName, &a.FirstName, &role,
		&a.IsActive, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.AdminUser{}, notFound(err)
	}
	a.Role = model.AdminRole(role)
	a.LastLogin = timePtr(lastLogin)
	return a, nil
}

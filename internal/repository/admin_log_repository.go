package repository

import (
	"context"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// AdminLogRepo appends to the admin_logs table. Rows are never updated.
type AdminLogRepo struct{ db DBTX }

func NewAdminLogRepo(db DBTX) *AdminLogRepo { return &AdminLogRepo{db: db} }

// WriteAdminLog inserts one audit record. A redelivered record with the
// same id is ignored.
func (r *AdminLogRepo) WriteAdminLog(ctx context.Context, l model.AdminLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_logs (id,admin_user_id,action,target_type,target_id,details,ip_address,user_agent,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		l.ID, l.AdminUserID, l.Action, nullString(l.TargetType), nullString(l.TargetID),
		nullString(l.Details), nullString(l.IPAddress), nullString(l.UserAgent), l.CreatedAt)
	if isDuplicate(err) {
		return nil
	}
	return err
}

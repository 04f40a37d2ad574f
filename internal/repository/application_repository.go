package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

const applicationColumns = `id,user_id,user_email,user_password_hash,user_last_name,user_first_name,user_phone,
	user_postal_code,user_prefecture,user_city,user_address,dog_name,dog_breed,dog_weight,dog_age,dog_gender,
	dog_birthday,vaccine_certificate,status,admin_notes,rejection_reason,approved_by,approved_at,created_at,updated_at`

// ApplicationRepo reads and writes the applications table.
type ApplicationRepo struct {
	db DBTX
	tx *TxRunner
}

// NewApplicationRepo returns a repo on db. runner may be nil for repos
// that never call Decide (e.g. one already bound to a transaction).
func NewApplicationRepo(db DBTX, runner *TxRunner) *ApplicationRepo {
	return &ApplicationRepo{db: db, tx: runner}
}

// Create inserts a pending application. A second pending application for
// the same email hits the unique pending_email index and yields
// ErrConflict.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	s, d := a.Applicant, a.Dog
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id,user_email,user_password_hash,user_last_name,user_first_name,user_phone,
		 user_postal_code,user_prefecture,user_city,user_address,dog_name,dog_breed,dog_weight,dog_age,dog_gender,
		 dog_birthday,vaccine_certificate,status,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, s.Email, s.PasswordHash, s.LastName, s.FirstName, s.PhoneNumber,
		s.ZipCode, s.Prefecture, s.City, s.Address, d.Name, d.Breed, d.Weight, nullInt(d.Age), d.Gender,
		nullTime(d.Birthday), d.VaccineCertificate, string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID fetches an application.
func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (model.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=?", id))
}

// PendingExists reports whether a pending application for email exists.
func (r *ApplicationRepo) PendingExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE user_email=? AND status='pending'", email).Scan(&n)
	return n > 0, err
}

// List returns applications newest first. An empty status lists all.
func (r *ApplicationRepo) List(ctx context.Context, status model.ApplicationStatus) ([]model.Application, error) {
	q := "SELECT " + applicationColumns + " FROM applications"
	var args []any
	if status != "" {
		q += " WHERE status=?"
		args = append(args, string(status))
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats counts applications per status; Today counts those created at or
// after since.
func (r *ApplicationRepo) Stats(ctx context.Context, since time.Time) (model.ApplicationStats, error) {
	var s model.ApplicationStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status='pending'),0),
		        COALESCE(SUM(status='approved'),0),
		        COALESCE(SUM(status='rejected'),0),
		        COALESCE(SUM(created_at >= ?),0)
		 FROM applications`, since).
		Scan(&s.Total, &s.Pending, &s.Approved, &s.Rejected, &s.Today)
	return s, err
}

// DecisionTx is the transactional view handed to Decide callbacks. All of
// its writes commit or roll back together.
type DecisionTx interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *model.User) error
	CreateDog(ctx context.Context, d *model.Dog) error
	SaveDecision(ctx context.Context, a model.Application) error
}

// Decide locks the application row (SELECT ... FOR UPDATE) and runs fn
// with it inside one transaction. A concurrent decision on the same row
// waits for the lock and then sees the committed status.
func (r *ApplicationRepo) Decide(ctx context.Context, id string,
	fn func(ctx context.Context, tx DecisionTx, app model.Application) error) error {
	return r.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		app, err := scanApplication(tx.QueryRowContext(ctx,
			"SELECT "+applicationColumns+" FROM applications WHERE id=? FOR UPDATE", id))
		if err != nil {
			return err
		}
		return fn(ctx, decisionTx{
			users: NewUserRepo(tx),
			dogs:  NewDogRepo(tx),
			apps:  NewApplicationRepo(tx, nil),
		}, app)
	})
}

// UpdateDecision writes the outcome of an approve or reject. The row is
// only touched while still pending; otherwise ErrStale is returned.
func (r *ApplicationRepo) UpdateDecision(ctx context.Context, a model.Application) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications
		 SET user_id=?, status=?, admin_notes=?, rejection_reason=?, approved_by=?, approved_at=?, updated_at=?
		 WHERE id=? AND status='pending'`,
		nullString(a.UserID), string(a.Status), nullString(a.AdminNotes), nullString(a.RejectionReason),
		nullString(a.ApprovedBy), nullTime(a.ApprovedAt), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

type decisionTx struct {
	users *UserRepo
	dogs  *DogRepo
	apps  *ApplicationRepo
}

func (d decisionTx) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return d.users.EmailRegistered(ctx, email)
}

func (d decisionTx) CreateUser(ctx context.Context, u *model.User) error {
	return d.users.Create(ctx, u)
}

func (d decisionTx) CreateDog(ctx context.Context, dog *model.Dog) error {
	return d.dogs.Create(ctx, dog)
}

func (d decisionTx) SaveDecision(ctx context.Context, a model.Application) error {
	return d.apps.UpdateDecision(ctx, a)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (model.Application, error) {
	var (
		a                                 model.Application
		userID, notes, reason, approvedBy sql.NullString
		age                               sql.NullInt64
		birthday, approvedAt              sql.NullTime
		status                            string
	)
	s, d := &a.Applicant, &a.Dog
	err := row.Scan(&a.ID, &userID, &s.Email, &s.PasswordHash, &s.LastName, &s.FirstName, &s.PhoneNumber,
		&s.ZipCode, &s.Prefecture, &s.City, &s.Address, &d.Name, &d.Breed, &d.Weight, &age, &d.Gender,
		&birthday, &d.VaccineCertificate, &status, &notes, &reason, &approvedBy, &approvedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Application{}, notFound(err)
	}
	a.Status = model.ApplicationStatus(status)
	a.UserID = stringPtr(userID)
	a.AdminNotes = stringPtr(notes)
	a.RejectionReason = stringPtr(reason)
	a.ApprovedBy = stringPtr(approvedBy)
	a.ApprovedAt = timePtr(approvedAt)
	d.Birthday = timePtr(birthday)
	if age.Valid {
		n := int(age.Int64)
		d.Age = &n
	}
	return a, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

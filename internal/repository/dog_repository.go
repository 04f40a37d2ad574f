package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

const dogColumns = "id,owner_id,name,breed,weight,gender,birthday_at,personality,vaccine_certificate,created_at,updated_at"

// DogRepo reads and writes the dogs table. Reads and writes by id are
// always scoped to the owner.
type DogRepo struct{ db DBTX }

func NewDogRepo(db DBTX) *DogRepo { return &DogRepo{db: db} }

// Create inserts d.
func (r *DogRepo) Create(ctx context.Context, d *model.Dog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dogs (id,owner_id,name,breed,weight,gender,birthday_at,personality,vaccine_certificate,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.OwnerID, d.Name, d.Breed, d.Weight, d.Gender, d.BirthdayAt, d.Personality,
		d.VaccineCertificate, d.CreatedAt, d.UpdatedAt)
	return err
}

// ListByOwner returns the dogs of one user, oldest first.
func (r *DogRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Dog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+dogColumns+" FROM dogs WHERE owner_id=? ORDER BY created_at", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Dog
	for rows.Next() {
		d, err := scanDog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetForOwner fetches a dog that belongs to ownerID. A dog owned by
// somebody else is reported as ErrNotFound.
func (r *DogRepo) GetForOwner(ctx context.Context, id, ownerID string) (model.Dog, error) {
	return scanDog(r.db.QueryRowContext(ctx,
		"SELECT "+dogColumns+" FROM dogs WHERE id=? AND owner_id=?", id, ownerID))
}

// Update overwrites the editable columns of d.
func (r *DogRepo) Update(ctx context.Context, d model.Dog) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dogs SET name=?, breed=?, weight=?, gender=?, birthday_at=?, personality=?, updated_at=?
		 WHERE id=? AND owner_id=?`,
		d.Name, d.Breed, d.Weight, d.Gender, d.BirthdayAt, d.Personality, d.UpdatedAt, d.ID, d.OwnerID)
	return err
}

// Delete removes a dog owned by ownerID.
func (r *DogRepo) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM dogs WHERE id=? AND owner_id=?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of registered dogs.
func (r *DogRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dogs").Scan(&n)
	return n, err
}

func scanDog(row rowScanner) (model.Dog, error) {
	var (
		d           model.Dog
		personality sql.NullString
	)
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Breed, &d.Weight, &d.Gender, &d.BirthdayAt,
		&personality, &d.VaccineCertificate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Dog{}, notFound(err)
	}
	d.Personality = personality.String
	return d, nil
}

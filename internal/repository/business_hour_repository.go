package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// BusinessHourRepo reads and writes business_hours (one row per weekday).
type BusinessHourRepo struct{ db DBTX }

func NewBusinessHourRepo(db DBTX) *BusinessHourRepo { return &BusinessHourRepo{db: db} }

// List returns all configured days ordered Sunday first.
func (r *BusinessHourRepo) List(ctx context.Context) ([]model.BusinessHour, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT day_of_week,is_open,open_time,close_time,special_note,updated_at FROM business_hours ORDER BY day_of_week")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BusinessHour
	for rows.Next() {
		var (
			h    model.BusinessHour
			note sql.NullString
		)
		if err := rows.Scan(&h.DayOfWeek, &h.IsOpen, &h.OpenTime, &h.CloseTime, &note, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.SpecialNote = note.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// Upsert stores the hours of one weekday.
func (r *BusinessHourRepo) Upsert(ctx context.Context, h model.BusinessHour) error {
	var note *string
	if h.SpecialNote != "" {
		note = &h.SpecialNote
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO business_hours (day_of_week,is_open,open_time,close_time,special_note,updated_at)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE is_open=VALUES(is_open), open_time=VALUES(open_time),
		   close_time=VALUES(close_time), special_note=VALUES(special_note), updated_at=VALUES(updated_at)`,
		h.DayOfWeek, h.IsOpen, h.OpenTime, h.CloseTime, nullString(note), h.UpdatedAt)
	return err
}

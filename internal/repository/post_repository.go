package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// PostRepo reads and writes posts together with their comments and likes.
type PostRepo struct{ db DBTX }

func NewPostRepo(db DBTX) *PostRepo { return &PostRepo{db: db} }

// Create inserts p.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO posts (id,user_id,content,created_at,updated_at) VALUES (?,?,?,?,?)",
		p.ID, p.UserID, p.Content, p.CreatedAt, p.UpdatedAt)
	return err
}

// List returns posts newest first with comment and like counts. A
// non-empty search filters on content. limit <= 0 means 50.
func (r *PostRepo) List(ctx context.Context, search string, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT p.id, p.user_id, p.content, p.created_at, p.updated_at,
	             (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	             (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id)
	      FROM posts p`
	var args []any
	if search != "" {
		q += " WHERE p.content LIKE ?"
		args = append(args, "%"+search+"%")
	}
	q += " ORDER BY p.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt, &p.UpdatedAt,
			&p.CommentsCount, &p.LikesCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Exists reports whether the post exists.
func (r *PostRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE id=?", id).Scan(&n)
	return n > 0, err
}

// Like records that userID likes postID. Liking twice is a no-op; the
// returned bool reports whether a new like was stored.
func (r *PostRepo) Like(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO likes (id,post_id,user_id) VALUES (?,?,?)",
		uuid.NewString(), postID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddComment inserts c.
func (r *PostRepo) AddComment(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (id,post_id,user_id,content,created_at) VALUES (?,?,?,?,?)",
		c.ID, c.PostID, c.UserID, c.Content, c.CreatedAt)
	return err
}

// Count returns the number of posts.
func (r *PostRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n)
	return n, err
}

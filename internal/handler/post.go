package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
)

// PostStore is implemented by *repository.PostRepo.
type PostStore interface {
	Create(ctx context.Context, p *model.Post) error
	List(ctx context.Context, search string, limit int) ([]model.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	Like(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, c *model.Comment) error
}

// PostHandler serves the member board. Listing is public; writing
// requires a member token.
type PostHandler struct {
	Posts PostStore
	now   func() time.Time
}

func NewPostHandler(posts PostStore) *PostHandler {
	return &PostHandler{Posts: posts, now: func() time.Time { return time.Now().UTC() }}
}

type contentReq struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type postResp struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Content       string    `json:"content"`
	CommentsCount int       `json:"comments_count"`
	LikesCount    int       `json:"likes_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type commentResp struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toPostResp(p model.Post) postResp {
	return postResp{
		ID:            p.ID,
		UserID:        p.UserID,
		Content:       p.Content,
		CommentsCount: p.CommentsCount,
		LikesCount:    p.LikesCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// List returns posts newest first. ?search= filters on content and
// ?limit= caps the result (default 50, max 200).
func (h *PostHandler) List(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequest("limit must be a positive number")
		}
		limit = min(n, 200)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.Posts.List(ctx, strings.TrimSpace(c.QueryParam("search")), limit)
	if err != nil {
		return err
	}
	out := make([]postResp, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Create publishes a post as the signed-in member.
func (h *PostHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req contentReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	now := h.now()
	p := model.Post{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Posts.Create(ctx, &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPostResp(p))
}

// Like marks the post as liked by the member. Repeating it is a no-op.
func (h *PostHandler) Like(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	postID := c.Param("id")
	if err := h.requirePost(ctx, postID); err != nil {
		return err
	}
	if _, err := h.Posts.Like(ctx, postID, u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "post liked"})
}

// Comment adds a comment to the post.
func (h *PostHandler) Comment(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req contentReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	postID := c.Param("id")
	if err := h.requirePost(ctx, postID); err != nil {
		return err
	}
	cm := model.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    u.ID,
		Content:   req.Content,
		CreatedAt: h.now(),
	}
	if err := h.Posts.AddComment(ctx, &cm); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, commentResp{
		ID:        cm.ID,
		PostID:    cm.PostID,
		UserID:    cm.UserID,
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
	})
}

func (h *PostHandler) requirePost(ctx context.Context, id string) error {
	ok, err := h.Posts.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

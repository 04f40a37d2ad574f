package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
)

// EntryStore is implemented by *repository.EntryRepo.
type EntryStore interface {
	Record(ctx context.Context, e *model.EntryLog, allow func(last model.EntryAction) error) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.EntryLog, error)
}

// EntryHandler records members entering and leaving the dog run. A member
// alternates between entry and exit; repeating the same action conflicts.
type EntryHandler struct {
	Entries EntryStore
	now     func() time.Time
}

func NewEntryHandler(entries EntryStore) *EntryHandler {
	return &EntryHandler{Entries: entries, now: func() time.Time { return time.Now().UTC() }}
}

type entryResp struct {
	ID         string            `json:"id"`
	Action     model.EntryAction `json:"action"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (h *EntryHandler) Enter(c echo.Context) error {
	return h.record(c, model.EntryActionEntry)
}

func (h *EntryHandler) Exit(c echo.Context) error {
	return h.record(c, model.EntryActionExit)
}

func (h *EntryHandler) record(c echo.Context, action model.EntryAction) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e := model.EntryLog{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		Action:     action,
		OccurredAt: h.now(),
	}
	if err := h.Entries.Record(ctx, &e, func(last model.EntryAction) error {
		return alternates(last, action)
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entryResp{ID: e.ID, Action: e.Action, OccurredAt: e.OccurredAt})
}

// alternates rejects an action that repeats the member's previous one.
func alternates(last, next model.EntryAction) error {
	switch {
	case next == model.EntryActionEntry && last == model.EntryActionEntry:
		return fmt.Errorf("%w: already inside the dog run", repository.ErrConflict)
	case next == model.EntryActionExit && last != model.EntryActionEntry:
		return fmt.Errorf("%w: not inside the dog run", repository.ErrConflict)
	}
	return nil
}

// Logs returns the member's recent entry and exit records.
func (h *EntryHandler) Logs(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	logs, err := h.Entries.ListByUser(ctx, u.ID, 100)
	if err != nil {
		return err
	}
	out := make([]entryResp, 0, len(logs))
	for _, e := range logs {
		out = append(out, entryResp{ID: e.ID, Action: e.Action, OccurredAt: e.OccurredAt})
	}
	return c.JSON(http.StatusOK, out)
}

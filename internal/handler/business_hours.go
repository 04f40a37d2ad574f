package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/service"
)

// HourStore is implemented by *repository.BusinessHourRepo.
type HourStore interface {
	List(ctx context.Context) ([]model.BusinessHour, error)
	Upsert(ctx context.Context, h model.BusinessHour) error
}

// BusinessHourHandler serves the public opening hours and their admin
// update. Invalidate drops cached copies of the public listing and may be
// nil when no cache is configured.
type BusinessHourHandler struct {
	Hours      HourStore
	Audit      service.AuditSink
	Invalidate func(ctx context.Context) error
	Logger     *slog.Logger
	now        func() time.Time
}

func NewBusinessHourHandler(hours HourStore, audit service.AuditSink, invalidate func(context.Context) error, logger *slog.Logger) *BusinessHourHandler {
	return &BusinessHourHandler{
		Hours:      hours,
		Audit:      audit,
		Invalidate: invalidate,
		Logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type businessHourReq struct {
	IsOpen      bool   `json:"is_open"`
	OpenTime    string `json:"open_time" validate:"omitempty,hhmm"`
	CloseTime   string `json:"close_time" validate:"omitempty,hhmm"`
	SpecialNote string `json:"special_note" validate:"max=255"`
}

// List returns the hours of every weekday, Sunday first.
func (h *BusinessHourHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	hours, err := h.Hours.List(ctx)
	if err != nil {
		return err
	}
	if hours == nil {
		hours = []model.BusinessHour{}
	}
	return c.JSON(http.StatusOK, hours)
}

// Update replaces the hours of the weekday in :day (0 = Sunday).
func (h *BusinessHourHandler) Update(c echo.Context) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 0 || day > 6 {
		return badRequest("day must be between 0 and 6")
	}
	var req businessHourReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	bh := model.BusinessHour{
		DayOfWeek:   day,
		IsOpen:      req.IsOpen,
		SpecialNote: req.SpecialNote,
		UpdatedAt:   h.now(),
	}
	if req.IsOpen {
		if req.OpenTime == "" || req.CloseTime == "" {
			return badRequest("open_time and close_time are required when is_open is true")
		}
		// HH:MM strings compare in time order
		if req.OpenTime >= req.CloseTime {
			return badRequest("open_time must be before close_time")
		}
		bh.OpenTime, bh.CloseTime = req.OpenTime, req.CloseTime
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Hours.Upsert(ctx, bh); err != nil {
		return err
	}
	if h.Invalidate != nil {
		if err := h.Invalidate(ctx); err != nil {
			h.Logger.Warn("invalidate business hours cache", slog.Any("error", err))
		}
	}

	details := fmt.Sprintf("day %d closed", day)
	if bh.IsOpen {
		details = fmt.Sprintf("day %d %s-%s", day, bh.OpenTime, bh.CloseTime)
	}
	h.Audit.Record(ctx, service.NewAdminLog(admin.ID, model.ActionUpdateBusinessHours,
		model.TargetBusinessHour, strconv.Itoa(day), details, auditContext(c)))
	return c.JSON(http.StatusOK, bh)
}

package service

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

var (
	auditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogrun_audit_records_total",
			Help: "Admin audit records by outcome (written, failed, dropped).",
		},
		[]string{"outcome"},
	)
)

// AuditContext carries the request details stored with an audit record.
type AuditContext struct {
	IPAddress string
	UserAgent string
}

// AuditSink accepts audit records. Record never blocks the caller and
// never reports failure; losing a record is acceptable.
type AuditSink interface {
	Record(ctx context.Context, entry model.AdminLog)
}

// AuditWriter persists or forwards a single record. Implemented by the
// admin_logs repository and by the RabbitMQ publisher.
type AuditWriter interface {
	WriteAdminLog(ctx context.Context, entry model.AdminLog) error
}

// NewAdminLog builds an audit record. Empty optional values are stored as
// NULL.
func NewAdminLog(adminID, action, targetType, targetID, details string, actx AuditContext) model.AdminLog {
	return model.AdminLog{
		ID:          uuid.NewString(),
		AdminUserID: adminID,
		Action:      action,
		TargetType:  optional(targetType),
		TargetID:    optional(targetID),
		Details:     optional(details),
		IPAddress:   optional(normalizeIP(actx.IPAddress)),
		UserAgent:   optional(actx.UserAgent),
		CreatedAt:   time.Now().UTC(),
	}
}

// AsyncAuditSink hands records to a background worker through a bounded
// buffer. When the buffer is full the record is dropped and logged.
type AsyncAuditSink struct {
	writer  AuditWriter
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	entries chan model.AdminLog
	done    chan struct{}
}

// NewAsyncAuditSink starts the worker. Call Close to drain and stop it.
func NewAsyncAuditSink(writer AuditWriter, logger *slog.Logger, buffer int, timeout time.Duration) *AsyncAuditSink {
	if buffer <= 0 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	s := &AsyncAuditSink{
		writer:  writer,
		logger:  logger,
		timeout: timeout,
		entries: make(chan model.AdminLog, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues entry without waiting.
func (s *AsyncAuditSink) Record(_ context.Context, entry model.AdminLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		auditRecordsTotal.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case s.entries <- entry:
	default:
		auditRecordsTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn("audit buffer full, record dropped",
			slog.String("action", entry.Action),
			slog.String("admin_user_id", entry.AdminUserID))
	}
}

// Close stops accepting records and waits for the buffered ones to be
// written.
func (s *AsyncAuditSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *AsyncAuditSink) run() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.writer.WriteAdminLog(ctx, entry)
		cancel()
		if err != nil {
			auditRecordsTotal.WithLabelValues("failed").Inc()
			s.logger.Error("audit write failed",
				slog.String("action", entry.Action),
				slog.String("admin_user_id", entry.AdminUserID),
				slog.Any("error", err))
			continue
		}
		auditRecordsTotal.WithLabelValues("written").Inc()
	}
}

// FallbackWriter tries Primary and falls back to Secondary when it fails.
// Used to keep records when the broker is unreachable.
type FallbackWriter struct {
	Primary   AuditWriter
	Secondary AuditWriter
}

func (w FallbackWriter) WriteAdminLog(ctx context.Context, entry model.AdminLog) error {
	if err := w.Primary.WriteAdminLog(ctx, entry); err == nil {
		return nil
	}
	return w.Secondary.WriteAdminLog(ctx, entry)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeIP(ip string) string {
	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.String()
	}
	return ip
}

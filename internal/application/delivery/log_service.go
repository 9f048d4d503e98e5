package delivery

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// LogService records integration attempts in the operation log and serves the
// operator log view. Appends are best-effort from the caller's perspective: a
// logging failure is reported to the caller's logger, never propagated, so it
// cannot fail the operation it describes.
type LogService struct {
	logs   delivery.OperationLogRepository
	logger *zap.Logger
}

// NewLogService creates a new LogService
func NewLogService(logs delivery.OperationLogRepository, logger *zap.Logger) *LogService {
	return &LogService{logs: logs, logger: logger}
}

// Record appends a prepared entry, swallowing persistence failures.
func (s *LogService) Record(ctx context.Context, entry *delivery.OperationLog) {
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append operation log entry",
			zap.String("platform", entry.Platform.String()),
			zap.String("action", entry.Action.String()),
			zap.Error(err),
		)
	}
}

// List returns log entries for the operator view, newest first.
func (s *LogService) List(ctx context.Context, tenantID uuid.UUID, filter delivery.OperationLogFilter) ([]delivery.OperationLog, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.logs.List(ctx, tenantID, filter)
}

// Get returns a single entry.
func (s *LogService) Get(ctx context.Context, tenantID, id uuid.UUID) (*delivery.OperationLog, error) {
	entry, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.TenantID != tenantID {
		return nil, delivery.ErrLogEntryNotFound
	}
	return entry, nil
}

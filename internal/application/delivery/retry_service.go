package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// DefaultRetryBatchSize bounds how many due entries one retry pass processes.
const DefaultRetryBatchSize = 20

// RetryService replays failed operation log entries that are due for another
// attempt. Only actions with a replayable request are re-executed
// (status pushes and auto-accepts); everything else is aged through its
// backoff until the budget runs out.
type RetryService struct {
	logs       delivery.OperationLogRepository
	orders     delivery.DeliveryOrderRepository
	statusSync *StatusSyncService
	logger     *zap.Logger
}

// NewRetryService creates a new RetryService
func NewRetryService(
	logs delivery.OperationLogRepository,
	orders delivery.DeliveryOrderRepository,
	statusSync *StatusSyncService,
	logger *zap.Logger,
) *RetryService {
	return &RetryService{
		logs:       logs,
		orders:     orders,
		statusSync: statusSync,
		logger:     logger,
	}
}

// ProcessDueRetries runs one retry pass and returns how many entries were
// attempted. Entries are processed oldest first so a wedged platform cannot
// starve earlier failures.
func (s *RetryService) ProcessDueRetries(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultRetryBatchSize
	}

	now := time.Now()
	due, err := s.logs.FindDueRetries(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	for _, entry := range due {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		s.retryEntry(ctx, entry, now)
	}
	return len(due), nil
}

func (s *RetryService) retryEntry(ctx context.Context, entry *delivery.OperationLog, now time.Time) {
	err := s.replay(ctx, entry)
	if err == nil {
		entry.MarkSucceeded()
		if updateErr := s.logs.Update(ctx, entry); updateErr != nil {
			s.logger.Error("failed to persist retry success",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(updateErr),
			)
		}
		s.logger.Info("retry succeeded",
			zap.String("platform", entry.Platform.String()),
			zap.String("action", entry.Action.String()),
			zap.String("external_id", entry.ExternalID),
			zap.Int("retry_count", entry.RetryCount),
		)
		return
	}

	if !errors.Is(err, delivery.ErrLogEntryTerminal) {
		entry.ErrorText = err.Error()
	}
	entry.ScheduleRetry(now)
	if updateErr := s.logs.Update(ctx, entry); updateErr != nil {
		s.logger.Error("failed to persist retry backoff",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(updateErr),
		)
	}

	if entry.IsTerminal() {
		s.logger.Warn("retry budget exhausted",
			zap.String("platform", entry.Platform.String()),
			zap.String("action", entry.Action.String()),
			zap.String("external_id", entry.ExternalID),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("retry failed, rescheduled",
			zap.String("platform", entry.Platform.String()),
			zap.String("action", entry.Action.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.Error(err),
		)
	}
}

// replay re-executes the operation an entry describes.
func (s *RetryService) replay(ctx context.Context, entry *delivery.OperationLog) error {
	switch entry.Action {
	case delivery.ActionSyncStatus:
		if entry.OrderID == nil {
			return delivery.ErrOrderNotSyncable
		}
		var req syncStatusRequest
		if err := json.Unmarshal([]byte(entry.RequestBody), &req); err != nil || req.Status == "" {
			return delivery.ErrStatusNotSyncable
		}
		return s.statusSync.SyncOrderStatus(ctx, *entry.OrderID, req.Status)

	case delivery.ActionAcceptOrder:
		if entry.OrderID == nil {
			return delivery.ErrOrderNotSyncable
		}
		return s.statusSync.SyncOrderStatus(ctx, *entry.OrderID, delivery.OrderStatusPending)

	default:
		// Not replayable; age the entry through its backoff.
		return delivery.ErrLogEntryTerminal
	}
}

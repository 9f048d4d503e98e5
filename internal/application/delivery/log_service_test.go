package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

func TestLogService_Record_SwallowsAppendFailure(t *testing.T) {
	logs := new(MockOperationLogRepository)
	entry := delivery.NewOperationLog(uuid.New(), delivery.PlatformGetir, delivery.DirectionInbound, delivery.ActionReceiveOrder)

	logs.On("Append", mock.Anything, entry).Return(errors.New("db down"))

	svc := NewLogService(logs, zap.NewNop())
	svc.Record(context.Background(), entry)

	logs.AssertExpectations(t)
}

func TestLogService_List_AppliesPagingDefaults(t *testing.T) {
	logs := new(MockOperationLogRepository)
	tenantID := uuid.New()

	expected := delivery.OperationLogFilter{Page: 1, PageSize: 20}
	logs.On("List", mock.Anything, tenantID, expected).
		Return([]delivery.OperationLog{}, int64(0), nil)

	svc := NewLogService(logs, zap.NewNop())
	_, total, err := svc.List(context.Background(), tenantID, delivery.OperationLogFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	logs.AssertExpectations(t)
}

func TestLogService_Get_TenantScoped(t *testing.T) {
	logs := new(MockOperationLogRepository)
	entry := delivery.NewOperationLog(uuid.New(), delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionSyncStatus)

	logs.On("FindByID", mock.Anything, entry.ID).Return(entry, nil)

	svc := NewLogService(logs, zap.NewNop())
	_, err := svc.Get(context.Background(), uuid.New(), entry.ID)

	assert.ErrorIs(t, err, delivery.ErrLogEntryNotFound)
}

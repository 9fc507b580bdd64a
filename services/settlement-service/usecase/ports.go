package usecase

import (
	"context"
	"errors"

	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/shared/common"
)

// EventPublisher notifies the other party of settlement changes
type EventPublisher interface {
	Publish(ctx context.Context, event entity.SettlementEvent) error
}

func isNotFound(err error) bool {
	return errors.Is(err, entity.ErrSettlementNotFound) ||
		errors.Is(err, entity.ErrListingNotFound) ||
		errors.Is(err, entity.ErrOrderLookupNotFound)
}

// classifyStoreError maps repository errors onto NotFound or StorageUnavailable
func classifyStoreError(collector *metrics.Collector, operation, resource string, err error) *common.AppError {
	if appErr := common.GetAppError(err); appErr != nil {
		return appErr
	}
	if isNotFound(err) {
		return common.ErrNotFound(resource, err)
	}
	collector.RecordStorageError(operation)
	return common.ErrStorageUnavailable(operation, err)
}

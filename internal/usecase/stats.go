package usecase

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// StatsUseCase derives order statistics from storage. It holds no state of
// its own; every snapshot is one consistent read so the buckets always sum
// to the total.
type StatsUseCase struct {
	orders repository.OrderRepository
}

// NewStatsUseCase constructs StatsUseCase.
func NewStatsUseCase(orders repository.OrderRepository) *StatsUseCase {
	return &StatsUseCase{orders: orders}
}

// Snapshot returns per-status counts from a single pass over storage.
func (u *StatsUseCase) Snapshot(ctx context.Context) (*model.OrderStatistics, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.OrderStatistics{
		New:        counts[model.OrderStatusNew],
		Processing: counts[model.OrderStatusProcessing],
		Paid:       counts[model.OrderStatusPaid],
		Shipped:    counts[model.OrderStatusShipped],
		Delivered:  counts[model.OrderStatusDelivered],
		Cancelled:  counts[model.OrderStatusCancelled],
	}
	stats.Total = stats.New + stats.Processing + stats.Paid + stats.Shipped + stats.Delivered + stats.Cancelled
	return stats, nil
}

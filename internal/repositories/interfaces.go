package repositories

import (
	"context"

	"finitefield.org/hanko-vouchers/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Vouchers() VoucherRepository
	VoucherUsages() VoucherUsageRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// VoucherRepository persists vouchers. Implementations store TargetDefinition and Metadata
// exactly as given, including a nil Metadata.
type VoucherRepository interface {
	Insert(ctx context.Context, voucher domain.Voucher) error
	Update(ctx context.Context, voucher domain.Voucher) error
	FindByID(ctx context.Context, voucherID string) (domain.Voucher, error)
	List(ctx context.Context, filter domain.VoucherListFilter) ([]domain.Voucher, error)
}

// VoucherUsageRepository reads voucher redemption history. Results are ordered by UsedAt
// descending.
type VoucherUsageRepository interface {
	List(ctx context.Context, filter domain.VoucherUsageFilter) ([]domain.VoucherUsage, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

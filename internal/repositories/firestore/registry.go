package firestore

import (
	"context"
	"fmt"

	"finitefield.org/hanko-vouchers/internal/platform/config"
	pfirestore "finitefield.org/hanko-vouchers/internal/platform/firestore"
	"finitefield.org/hanko-vouchers/internal/repositories"
)

// Registry wires the Firestore repositories around one shared provider.
type Registry struct {
	provider *pfirestore.Provider
	vouchers *VoucherRepository
	usages   *VoucherUsageRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds the repositories for the configured collections. The client is created on
// first use; txOpts bound every update transaction.
func NewRegistry(provider *pfirestore.Provider, store config.StoreConfig, txOpts ...pfirestore.TxOption) (*Registry, error) {
	vouchers, err := NewVoucherRepository(provider, store.VouchersCollection, txOpts...)
	if err != nil {
		return nil, err
	}
	usages, err := NewVoucherUsageRepository(provider, store.UsagesCollection, txOpts...)
	if err != nil {
		return nil, err
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "firestore", Check: provider.Ping},
	})
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	return &Registry{provider: provider, vouchers: vouchers, usages: usages, health: health}, nil
}

func (r *Registry) Vouchers() repositories.VoucherRepository           { return r.vouchers }
func (r *Registry) VoucherUsages() repositories.VoucherUsageRepository { return r.usages }
func (r *Registry) Health() repositories.HealthRepository              { return r.health }

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

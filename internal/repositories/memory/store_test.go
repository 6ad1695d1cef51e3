package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/repositories"
)

const seedYAML = `
vouchers:
  - id: v-spring
    code: SPRING
    name: Spring sale
    type: percentage
    value: 1500
    currency: MYR
    status: active
    usage_limit: 100
    times_used: 12
    wallet:
      entries: 5
      redeemed: 2
    target_definition:
      scope: items
      phase: item_discount
      application: per_item
    updated_at: 2026-03-02T00:00:00Z
  - id: v-legacy
    code: LEGACY
    type: fixed
    value: 500
    status: paused
    metadata:
      target_definition:
        scope: shipments
        phase: shipping
        application: per_group
      campaign: winter
    updated_at: 2026-03-01T00:00:00Z
usages:
  - id: u-1
    voucher_id: v-spring
    channel: automatic
    discount_amount: 300
    used_at: 2026-03-03T10:00:00Z
  - id: u-2
    voucher_id: v-spring
    channel: manual
    redeemed_by_type: order
    redeemed_by_id: o-42
    used_at: 2026-03-04T10:00:00Z
`

func seededStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.LoadSeed(context.Background(), []byte(seedYAML)))
	return store
}

func TestLoadSeedDecodesNestedDefinitions(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	ctx := context.Background()

	spring, err := store.Vouchers().FindByID(ctx, "v-spring")
	require.NoError(t, err)
	require.Equal(t, "items", spring.TargetDefinition["scope"])
	require.Equal(t, 100, *spring.UsageLimit)
	require.Equal(t, domain.VoucherWalletStats{Entries: 5, Redeemed: 2}, spring.Wallet)

	legacy, err := store.Vouchers().FindByID(ctx, "v-legacy")
	require.NoError(t, err)
	require.Nil(t, legacy.TargetDefinition)
	nested, ok := legacy.Metadata["target_definition"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "shipments", nested["scope"])
}

func TestVoucherRepositoryCopiesMaps(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	ctx := context.Background()

	legacy, err := store.Vouchers().FindByID(ctx, "v-legacy")
	require.NoError(t, err)
	legacy.Metadata["target_definition"].(map[string]any)["scope"] = "payments"

	again, err := store.Vouchers().FindByID(ctx, "v-legacy")
	require.NoError(t, err)
	require.Equal(t, "shipments", again.Metadata["target_definition"].(map[string]any)["scope"])
}

func TestVoucherRepositoryWriteErrors(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	ctx := context.Background()
	vouchers := store.Vouchers()

	var repoErr repositories.RepositoryError
	err := vouchers.Insert(ctx, domain.Voucher{ID: "v-spring"})
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	err = vouchers.Update(ctx, domain.Voucher{ID: "missing"})
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())

	_, err = vouchers.FindByID(ctx, "missing")
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())

	require.Error(t, vouchers.Insert(ctx, domain.Voucher{ID: " "}))
}

func TestVoucherRepositoryUpdateStoresNilMetadata(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	ctx := context.Background()

	legacy, err := store.Vouchers().FindByID(ctx, "v-legacy")
	require.NoError(t, err)
	legacy.Metadata = nil
	legacy.TargetDefinition = map[string]any{"scope": "shipments", "phase": "shipping", "application": "per_group"}
	require.NoError(t, store.Vouchers().Update(ctx, legacy))

	stored, err := store.Vouchers().FindByID(ctx, "v-legacy")
	require.NoError(t, err)
	require.Nil(t, stored.Metadata)
	require.Equal(t, "per_group", stored.TargetDefinition["application"])
}

func TestVoucherRepositoryListFiltersAndOrders(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	ctx := context.Background()

	all, err := store.Vouchers().List(ctx, domain.VoucherListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "v-spring", all[0].ID)

	paused, err := store.Vouchers().List(ctx, domain.VoucherListFilter{Status: domain.VoucherStatusPaused})
	require.NoError(t, err)
	require.Len(t, paused, 1)
	require.Equal(t, "v-legacy", paused[0].ID)

	limited, err := store.Vouchers().List(ctx, domain.VoucherListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestUsageRepositoryListsNewestFirst(t *testing.T) {
	t.Parallel()

	store := seededStore(t)
	store.AddUsage(domain.VoucherUsage{
		ID:        "u-3",
		VoucherID: "v-legacy",
		Channel:   domain.VoucherUsageChannelAPI,
		UsedAt:    time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
	})
	ctx := context.Background()

	usages, err := store.VoucherUsages().List(ctx, domain.VoucherUsageFilter{VoucherID: "v-spring"})
	require.NoError(t, err)
	require.Len(t, usages, 2)
	require.Equal(t, "u-2", usages[0].ID)
	require.Equal(t, "u-1", usages[1].ID)

	manual, err := store.VoucherUsages().List(ctx, domain.VoucherUsageFilter{Channel: domain.VoucherUsageChannelManual})
	require.NoError(t, err)
	require.Len(t, manual, 1)
	require.Equal(t, "o-42", manual[0].RedeemedByID)
}

func TestHealthReflectsClose(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	report, err := store.Health().Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, report.Status)

	require.NoError(t, store.Close(ctx))
	report, err = store.Health().Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusDegraded, report.Status)

	var repoErr repositories.RepositoryError
	err = store.Vouchers().Insert(ctx, domain.Voucher{ID: "v-new"})
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsUnavailable())
}

func TestLoadSeedRejectsDuplicates(t *testing.T) {
	t.Parallel()

	store := NewStore()
	err := store.LoadSeed(context.Background(), []byte("vouchers:\n  - id: a\n  - id: a\n"))
	require.ErrorContains(t, err, `seed voucher "a"`)
}

package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-vouchers/internal/domain"
)

func TestVoucherDocumentKeepsDefinitionAndNilMetadata(t *testing.T) {
	t.Parallel()

	starts := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.FixedZone("MYT", 8*60*60))
	limit := 50
	voucher := domain.Voucher{
		ID:               "v-1",
		Code:             "NEWYEAR",
		Type:             domain.VoucherTypeFixed,
		Value:            1000,
		Status:           domain.VoucherStatusDraft,
		StartsAt:         &starts,
		UsageLimit:       &limit,
		TimesUsed:        3,
		Wallet:           domain.VoucherWalletStats{Entries: 4, Claimed: 1},
		TargetDefinition: map[string]any{"scope": "shipments", "phase": "shipping", "application": "per_group"},
		CreatedAt:        starts,
	}

	doc := encodeVoucherDocument(voucher)
	require.Nil(t, doc.Metadata)
	require.Equal(t, int64(50), *doc.UsageLimit)
	require.Equal(t, time.UTC, doc.CreatedAt.Location())

	decoded := decodeVoucherDocument("v-1", doc)
	require.Equal(t, voucher.TargetDefinition, decoded.TargetDefinition)
	require.Equal(t, 50, *decoded.UsageLimit)
	require.Equal(t, voucher.Wallet, decoded.Wallet)
	require.Nil(t, decoded.Metadata)
}

func TestUsageDocumentRoundTripsChannel(t *testing.T) {
	t.Parallel()

	usage := domain.VoucherUsage{
		ID:             "u-1",
		VoucherID:      "v-1",
		Channel:        domain.VoucherUsageChannelAPI,
		DiscountAmount: 250,
		RedeemedByType: domain.RedeemedByOrder,
		RedeemedByID:   "o-9",
		UsedAt:         time.Date(2026, time.February, 2, 3, 4, 5, 0, time.UTC),
	}
	decoded := decodeUsageDocument("u-1", encodeUsageDocument(usage))
	require.Equal(t, usage, decoded)
}

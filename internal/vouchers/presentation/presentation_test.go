package presentation

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

func TestConditionTargetFromRecordDefinition(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	record := targetsync.Data{
		targetsync.FieldTargetDefinition: map[string]any{"scope": "shipments", "phase": "shipping", "application": "per_group"},
	}

	view := p.ConditionTarget(record)
	require.Equal(t, preset.Shipments.Label(), view.PresetLabel)
	require.Equal(t, "SHIPMENTS", view.Scope)
	require.Equal(t, "shipping", view.Phase)
	require.Equal(t, "per group", view.Application)
	require.Equal(t, "shipments@shipping/per_group", view.DSL)
	require.Equal(t, targetsync.SourceRecord, view.Source)
	require.False(t, view.Invalid)
}

func TestConditionTargetFromLegacyMetadata(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	view := p.ConditionTarget(targetsync.Data{
		targetsync.FieldMetadata: map[string]any{
			targetsync.LegacyKeyTargetDefinition: map[string]any{"scope": "items", "phase": "item_discount"},
		},
	})
	require.Equal(t, preset.Items.Label(), view.PresetLabel)
	require.Equal(t, "ITEMS", view.Scope)
	require.Equal(t, "item discount", view.Phase)
	require.Equal(t, "aggregate", view.Application, "missing application falls back to the raw default")
	require.Equal(t, "items@item_discount/per_item", view.DSL)
	require.Equal(t, targetsync.SourceMetadata, view.Source)
}

func TestConditionTargetDefaultsWhenAbsent(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	record := targetsync.Data{targetsync.FieldMetadata: map[string]any{"notes": "x"}}
	view := p.ConditionTarget(record)

	defaultDSL, _ := preset.Default().DSL()
	require.Equal(t, preset.Default().Label(), view.PresetLabel)
	require.Equal(t, "CART", view.Scope)
	require.Equal(t, "cart subtotal", view.Phase)
	require.Equal(t, "aggregate", view.Application)
	require.Equal(t, defaultDSL, view.DSL)
	require.Equal(t, targetsync.SourceDefault, view.Source)
	require.Equal(t, targetsync.Data{targetsync.FieldMetadata: map[string]any{"notes": "x"}}, record)
}

func TestConditionTargetCustomAndInvalidDefinitions(t *testing.T) {
	t.Parallel()

	p := New(Options{})

	custom := p.ConditionTarget(targetsync.Data{
		targetsync.FieldTargetDefinition: map[string]any{"scope": "cart", "phase": "tax"},
	})
	require.Equal(t, "cart@tax/aggregate", custom.DSL)
	require.Equal(t, preset.Default().Label(), custom.PresetLabel)

	invalid := p.ConditionTarget(targetsync.Data{
		targetsync.FieldTargetDefinition: map[string]any{"scope": "warehouse", "phase": "tax"},
	})
	require.True(t, invalid.Invalid)
	require.Empty(t, invalid.DSL)
	require.Equal(t, "WAREHOUSE", invalid.Scope)
	require.Equal(t, preset.Default().Label(), invalid.PresetLabel)
}

func TestConditionTargetFieldsFallBackIndependently(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	view := p.ConditionTarget(targetsync.Data{
		targetsync.FieldTargetDefinition: map[string]any{"phase": "shipping", "application": "per_group"},
		targetsync.FieldMetadata: map[string]any{
			targetsync.LegacyKeyTargetDefinition: map[string]any{"scope": "shipments", "phase": "tax"},
		},
	})
	require.Equal(t, "SHIPMENTS", view.Scope, "scope comes from metadata when the record definition omits it")
	require.Equal(t, "shipping", view.Phase, "record definition wins over metadata")
	require.Equal(t, "per group", view.Application)
	require.Equal(t, targetsync.SourceRecord, view.Source)
}

func TestConditionTargetConcurrentCalls(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	record := targetsync.Data{
		targetsync.FieldTargetDefinition: map[string]any{"scope": "payments", "phase": "payment"},
	}

	var wg sync.WaitGroup
	scopes := make([]string, 32)
	for i := range scopes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scopes[i] = p.ConditionTarget(record).Scope
		}()
	}
	wg.Wait()

	for _, scope := range scopes {
		require.Equal(t, "PAYMENTS", scope)
	}
}

func TestMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		minor int64
		code  string
		want  string
	}{
		{name: "two decimals", minor: 123450, code: "myr", want: "MYR 1,234.50"},
		{name: "zero decimals", minor: 1234, code: "JPY", want: "JPY 1,234"},
		{name: "negative below one", minor: -50, code: "MYR", want: "MYR -0.50"},
		{name: "negative grouped", minor: -123456789, code: "USD", want: "USD -1,234,567.89"},
		{name: "beyond float precision", minor: math.MaxInt64, code: "MYR", want: "MYR 92,233,720,368,547,758.07"},
		{name: "beyond float precision without fraction", minor: math.MaxInt64, code: "JPY", want: "JPY 9,223,372,036,854,775,807"},
		{name: "unknown code keeps two decimals", minor: 5, code: "", want: "0.05"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Money(tc.minor, tc.code))
		})
	}
}

func TestOverviewAndMetrics(t *testing.T) {
	t.Parallel()

	limit := 4
	p := New(Options{})
	v := domain.Voucher{
		ID:           "v1",
		Code:         "SPRING10",
		Name:         "Spring",
		Type:         domain.VoucherTypePercentage,
		Value:        1250,
		Status:       domain.VoucherStatusActive,
		UsageLimit:   &limit,
		TimesUsed:    1,
		AppliedCount: 7,
	}

	overview := p.Overview(v)
	require.Equal(t, "12.5%", overview.ValueLabel)
	require.Equal(t, "Percentage", overview.TypeLabel)
	require.Equal(t, "Active", overview.StatusLabel)
	require.Equal(t, DefaultOwner, overview.Owner)

	metrics := p.UsageMetrics(v)
	require.Equal(t, UsageMetrics{Applied: 7, Redeemed: 1, Remaining: "3", Progress: "25.0%"}, metrics)

	v.UsageLimit = nil
	metrics = p.UsageMetrics(v)
	require.Equal(t, "∞", metrics.Remaining)
	require.Equal(t, "—", metrics.Progress)
}

func TestValueLabel(t *testing.T) {
	t.Parallel()

	p := New(Options{DefaultCurrency: "jpy"})
	require.Equal(t, "10%", p.ValueLabel(domain.Voucher{Type: domain.VoucherTypePercentage, Value: 1000}))
	require.Equal(t, "JPY 1,500", p.ValueLabel(domain.Voucher{Type: domain.VoucherTypeFixed, Value: 1500}))
	require.Equal(t, "MYR 15.00", p.ValueLabel(domain.Voucher{Type: domain.VoucherTypeFixed, Value: 1500, Currency: "myr"}))
	require.Equal(t, "Free shipping", p.ValueLabel(domain.Voucher{Type: domain.VoucherTypeFreeShipping}))
}

func TestDescription(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	require.Equal(t, "-", p.Description("  "))
	require.Equal(t, "<p><strong>Bold</strong> offer</p>", p.Description("**Bold** offer"))

	html := p.Description("hi <script>alert(1)</script>")
	require.NotContains(t, html, "<script")
}

func TestUsageRows(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p := New(Options{OrderURLTemplate: "/admin/orders/{orderID}", VoucherURLPrefix: "/admin/vouchers/"})
	usages := []domain.VoucherUsage{
		{ID: "u1", VoucherID: "v1", VoucherCode: "SPRING10", Channel: domain.VoucherUsageChannelAutomatic, DiscountAmount: 123450, UsedAt: base},
		{ID: "u2", VoucherID: "v1", Channel: domain.VoucherUsageChannelManual, DiscountAmount: 500, Currency: "jpy", RedeemedByType: domain.RedeemedByOrder, RedeemedByID: "ord_1", OrderNumber: "HF-1001", Notes: "phone order", UsedAt: base.Add(2 * time.Hour)},
		{ID: "u3", Channel: domain.VoucherUsageChannelAPI, RedeemedByType: "user", OrderNumber: "ignored", UserEmail: "a@example.com", UsedAt: base.Add(time.Hour)},
	}

	rows := p.UsageRows(usages, "")
	require.Len(t, rows, 3)
	require.Equal(t, []string{"u2", "u3", "u1"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	require.Equal(t, ToneWarning, rows[0].ChannelTone)
	require.Equal(t, "JPY 500", rows[0].Discount)
	require.Equal(t, "HF-1001", rows[0].OrderNumber)
	require.Equal(t, "/admin/orders/ord_1", rows[0].OrderURL)
	require.True(t, rows[0].HasNotes)
	require.Equal(t, "N/A", rows[0].VoucherCode)
	require.Equal(t, "/admin/vouchers/v1", rows[0].VoucherURL)

	require.Equal(t, ToneInfo, rows[1].ChannelTone)
	require.Equal(t, "API", rows[1].ChannelLabel)
	require.Equal(t, "N/A", rows[1].OrderNumber)
	require.Empty(t, rows[1].OrderURL)
	require.Equal(t, "a@example.com", rows[1].User)

	require.Equal(t, ToneSuccess, rows[2].ChannelTone)
	require.Equal(t, "MYR 1,234.50", rows[2].Discount)
	require.Equal(t, "N/A", rows[2].User)
	require.False(t, rows[2].HasNotes)

	manual := p.UsageRows(usages, domain.VoucherUsageChannelManual)
	require.Len(t, manual, 1)
	require.Equal(t, "u2", manual[0].ID)
	require.Equal(t, "u1", usages[0].ID, "input order is preserved")
}

func TestUsageChannelOptions(t *testing.T) {
	t.Parallel()

	require.Equal(t, []UsageChannelOption{
		{Value: "automatic", Label: "Automatic"},
		{Value: "manual", Label: "Manual"},
		{Value: "api", Label: "API"},
	}, UsageChannelOptions())
}

func TestDetailDoesNotMutateVoucher(t *testing.T) {
	t.Parallel()

	p := New(Options{})
	v := domain.Voucher{
		ID:               "v1",
		TargetDefinition: map[string]any{"scope": "payments", "phase": "payment"},
		Metadata:         map[string]any{"target_definition": map[string]any{"scope": "cart", "phase": "tax"}},
		Wallet:           domain.VoucherWalletStats{Entries: 3, Available: 2, Claimed: 1},
	}
	detail := p.Detail(v)
	require.Equal(t, "payments@payment/per_payment", detail.ConditionTarget.DSL)
	require.Equal(t, WalletStats{Total: 3, Available: 2, Claimed: 1}, detail.Wallet)
	require.Equal(t, "-", detail.DescriptionHTML)
	require.Len(t, v.TargetDefinition, 2)
	require.Contains(t, v.Metadata, "target_definition")
}

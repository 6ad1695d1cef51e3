package domain

import (
	"strings"
	"time"
)

// VoucherType determines how a voucher's value is interpreted.
type VoucherType string

const (
	// VoucherTypePercentage discounts by Value basis points.
	VoucherTypePercentage VoucherType = "percentage"
	// VoucherTypeFixed discounts by Value minor currency units.
	VoucherTypeFixed VoucherType = "fixed"
	// VoucherTypeFreeShipping waives shipping charges.
	VoucherTypeFreeShipping VoucherType = "free_shipping"
)

// Label returns the admin display label.
func (t VoucherType) Label() string {
	switch t {
	case VoucherTypePercentage:
		return "Percentage"
	case VoucherTypeFixed:
		return "Fixed amount"
	case VoucherTypeFreeShipping:
		return "Free shipping"
	default:
		return humanize(string(t))
	}
}

// VoucherStatus is the lifecycle status of a voucher.
type VoucherStatus string

const (
	VoucherStatusDraft    VoucherStatus = "draft"
	VoucherStatusActive   VoucherStatus = "active"
	VoucherStatusPaused   VoucherStatus = "paused"
	VoucherStatusExpired  VoucherStatus = "expired"
	VoucherStatusDepleted VoucherStatus = "depleted"
)

// Label returns the admin display label.
func (s VoucherStatus) Label() string {
	switch s {
	case VoucherStatusDraft:
		return "Draft"
	case VoucherStatusActive:
		return "Active"
	case VoucherStatusPaused:
		return "Paused"
	case VoucherStatusExpired:
		return "Expired"
	case VoucherStatusDepleted:
		return "Depleted"
	default:
		return humanize(string(s))
	}
}

// Voucher is a discount code managed from the admin console. TargetDefinition is the only
// authoritative location of the condition target.
type Voucher struct {
	ID               string
	Code             string
	Name             string
	Description      string
	Type             VoucherType
	Value            int64
	Currency         string
	Status           VoucherStatus
	StartsAt         *time.Time
	ExpiresAt        *time.Time
	UsageLimit       *int
	TimesUsed        int
	AppliedCount     int
	OwnerDisplayName string
	Wallet           VoucherWalletStats
	TargetDefinition map[string]any
	Metadata         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RemainingUses returns the uses left before the limit, or nil when unlimited.
func (v Voucher) RemainingUses() *int {
	if v.UsageLimit == nil {
		return nil
	}
	remaining := *v.UsageLimit - v.TimesUsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// UsageProgress returns the percentage of the usage limit consumed, or nil when unlimited.
func (v Voucher) UsageProgress() *float64 {
	if v.UsageLimit == nil || *v.UsageLimit <= 0 {
		return nil
	}
	progress := float64(v.TimesUsed) / float64(*v.UsageLimit) * 100
	return &progress
}

// VoucherWalletStats counts vouchers saved to customer wallets.
type VoucherWalletStats struct {
	Entries   int
	Available int
	Claimed   int
	Redeemed  int
}

// VoucherUsageChannel records how a voucher redemption happened.
type VoucherUsageChannel string

const (
	VoucherUsageChannelAutomatic VoucherUsageChannel = "automatic"
	VoucherUsageChannelManual    VoucherUsageChannel = "manual"
	VoucherUsageChannelAPI       VoucherUsageChannel = "api"
)

// Label returns the admin display label.
func (c VoucherUsageChannel) Label() string {
	switch c {
	case VoucherUsageChannelAutomatic:
		return "Automatic"
	case VoucherUsageChannelManual:
		return "Manual"
	case VoucherUsageChannelAPI:
		return "API"
	default:
		return humanize(string(c))
	}
}

// VoucherUsageChannels lists the known channels in filter order.
func VoucherUsageChannels() []VoucherUsageChannel {
	return []VoucherUsageChannel{VoucherUsageChannelAutomatic, VoucherUsageChannelManual, VoucherUsageChannelAPI}
}

// RedeemedByOrder marks usages redeemed by an order.
const RedeemedByOrder = "order"

// VoucherUsage is a single redemption of a voucher.
type VoucherUsage struct {
	ID             string
	VoucherID      string
	VoucherCode    string
	Channel        VoucherUsageChannel
	DiscountAmount int64
	Currency       string
	RedeemedByType string
	RedeemedByID   string
	OrderNumber    string
	UserEmail      string
	Notes          string
	Metadata       map[string]any
	UsedAt         time.Time
}

// VoucherListFilter narrows voucher listings. Zero values match everything.
type VoucherListFilter struct {
	Status VoucherStatus
	Type   VoucherType
	Limit  int
}

// VoucherUsageFilter narrows usage listings.
type VoucherUsageFilter struct {
	VoucherID string
	Channel   VoucherUsageChannel
	Limit     int
}

func humanize(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

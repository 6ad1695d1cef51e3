package presentation

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"finitefield.org/hanko-vouchers/internal/domain"
)

// Badge tones for usage channels.
const (
	ToneSuccess = "success"
	ToneWarning = "warning"
	ToneInfo    = "info"
)

// UsageRow is a voucher usage table row.
type UsageRow struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	VoucherCode  string    `json:"voucher_code"`
	VoucherURL   string    `json:"voucher_url,omitempty"`
	Channel      string    `json:"channel"`
	ChannelLabel string    `json:"channel_label"`
	ChannelTone  string    `json:"channel_tone"`
	Discount     string    `json:"discount"`
	OrderNumber  string    `json:"order_number"`
	OrderURL     string    `json:"order_url,omitempty"`
	UsedAt       time.Time `json:"used_at"`
	HasNotes     bool      `json:"has_notes"`
}

// UsageChannelOption is a channel filter choice.
type UsageChannelOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UsageChannelOptions lists the channel filter choices.
func UsageChannelOptions() []UsageChannelOption {
	channels := domain.VoucherUsageChannels()
	options := make([]UsageChannelOption, 0, len(channels))
	for _, channel := range channels {
		options = append(options, UsageChannelOption{Value: string(channel), Label: channel.Label()})
	}
	return options
}

// ChannelTone maps a usage channel to its badge tone.
func ChannelTone(channel domain.VoucherUsageChannel) string {
	switch channel {
	case domain.VoucherUsageChannelManual:
		return ToneWarning
	case domain.VoucherUsageChannelAPI:
		return ToneInfo
	default:
		return ToneSuccess
	}
}

// UsageRows converts usages into table rows, newest first, keeping only the given channel when it
// is set. The input slice is not reordered.
func (p *Presenter) UsageRows(usages []domain.VoucherUsage, channel domain.VoucherUsageChannel) []UsageRow {
	filtered := make([]domain.VoucherUsage, 0, len(usages))
	for _, usage := range usages {
		if channel != "" && usage.Channel != channel {
			continue
		}
		filtered = append(filtered, usage)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].UsedAt.After(filtered[j].UsedAt)
	})

	rows := make([]UsageRow, 0, len(filtered))
	for _, usage := range filtered {
		rows = append(rows, p.usageRow(usage))
	}
	return rows
}

func (p *Presenter) usageRow(usage domain.VoucherUsage) UsageRow {
	row := UsageRow{
		ID:           usage.ID,
		User:         orPlaceholder(usage.UserEmail),
		VoucherCode:  orPlaceholder(usage.VoucherCode),
		VoucherURL:   p.voucherURL(usage.VoucherID),
		Channel:      string(usage.Channel),
		ChannelLabel: usage.Channel.Label(),
		ChannelTone:  ChannelTone(usage.Channel),
		Discount:     Money(usage.DiscountAmount, p.currencyOr(usage.Currency)),
		OrderNumber:  placeholder,
		UsedAt:       usage.UsedAt,
		HasNotes:     len(usage.Metadata) > 0 || strings.TrimSpace(usage.Notes) != "",
	}
	if usage.RedeemedByType == domain.RedeemedByOrder {
		row.OrderNumber = orPlaceholder(usage.OrderNumber)
		row.OrderURL = p.orderURL(usage.RedeemedByID)
	}
	return row
}

func (p *Presenter) orderURL(orderID string) string {
	orderID = strings.TrimSpace(orderID)
	if p.orderURLTemplate == "" || orderID == "" {
		return ""
	}
	return strings.ReplaceAll(p.orderURLTemplate, "{orderID}", url.PathEscape(orderID))
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

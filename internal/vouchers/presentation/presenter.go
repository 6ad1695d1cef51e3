// Package presentation derives the read-only admin views of vouchers and voucher usages.
package presentation

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"finitefield.org/hanko-vouchers/internal/conditiontarget"
	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

const (
	// DefaultCurrency is used for usages recorded without a currency.
	DefaultCurrency = "MYR"
	// DefaultOwner is shown for vouchers not owned by a specific store or user.
	DefaultOwner = "Global"

	emptyDescription = "-"
	unlimited        = "∞"
	noProgress       = "—"
	placeholder      = "N/A"
)

// Options configures a Presenter.
type Options struct {
	Codec            preset.Codec
	DefaultCurrency  string
	OrderURLTemplate string
	VoucherURLPrefix string
}

// Presenter builds view models. It is safe for concurrent use.
type Presenter struct {
	codec            preset.Codec
	detector         *preset.Detector
	markdown         goldmark.Markdown
	policy           *bluemonday.Policy
	defaultCurrency  string
	orderURLTemplate string
	voucherURLPrefix string
}

// New constructs a Presenter, applying defaults for unset options.
func New(opts Options) *Presenter {
	codec := opts.Codec
	if codec == nil {
		codec = conditiontarget.Codec{}
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Presenter{
		codec:            codec,
		detector:         preset.NewDetector(codec),
		markdown:         goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:           bluemonday.UGCPolicy(),
		defaultCurrency:  currency,
		orderURLTemplate: strings.TrimSpace(opts.OrderURLTemplate),
		voucherURLPrefix: strings.TrimRight(strings.TrimSpace(opts.VoucherURLPrefix), "/"),
	}
}

// Overview summarises a voucher's identity and lifecycle.
type Overview struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	TypeLabel   string     `json:"type_label"`
	ValueLabel  string     `json:"value_label"`
	Status      string     `json:"status"`
	StatusLabel string     `json:"status_label"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Owner       string     `json:"owner"`
}

// UsageMetrics reports how often a voucher was applied and redeemed.
type UsageMetrics struct {
	Applied   int    `json:"applied"`
	Redeemed  int    `json:"redeemed"`
	Remaining string `json:"remaining"`
	Progress  string `json:"progress"`
}

// WalletStats counts wallet entries by state.
type WalletStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Claimed   int `json:"claimed"`
	Redeemed  int `json:"redeemed"`
}

// VoucherDetail is the full detail view of a voucher.
type VoucherDetail struct {
	Overview        Overview        `json:"overview"`
	ConditionTarget ConditionTarget `json:"condition_target"`
	Usage           UsageMetrics    `json:"usage"`
	Wallet          WalletStats     `json:"wallet"`
	DescriptionHTML string          `json:"description_html"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// VoucherRow is a voucher list row.
type VoucherRow struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	StatusLabel     string          `json:"status_label"`
	ValueLabel      string          `json:"value_label"`
	ConditionTarget ConditionTarget `json:"condition_target"`
	TimesUsed       int             `json:"times_used"`
	URL             string          `json:"url,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Detail builds the detail view of v.
func (p *Presenter) Detail(v domain.Voucher) VoucherDetail {
	return VoucherDetail{
		Overview:        p.Overview(v),
		ConditionTarget: p.ConditionTarget(RecordData(v)),
		Usage:           p.UsageMetrics(v),
		Wallet:          p.WalletStats(v),
		DescriptionHTML: p.Description(v.Description),
		UpdatedAt:       v.UpdatedAt,
	}
}

// Row builds the list row of v.
func (p *Presenter) Row(v domain.Voucher) VoucherRow {
	return VoucherRow{
		ID:              v.ID,
		Code:            v.Code,
		Name:            v.Name,
		StatusLabel:     v.Status.Label(),
		ValueLabel:      p.ValueLabel(v),
		ConditionTarget: p.ConditionTarget(RecordData(v)),
		TimesUsed:       v.TimesUsed,
		URL:             p.voucherURL(v.ID),
		UpdatedAt:       v.UpdatedAt,
	}
}

// Overview builds the overview section of v.
func (p *Presenter) Overview(v domain.Voucher) Overview {
	owner := strings.TrimSpace(v.OwnerDisplayName)
	if owner == "" {
		owner = DefaultOwner
	}
	return Overview{
		ID:          v.ID,
		Code:        v.Code,
		Name:        v.Name,
		Type:        string(v.Type),
		TypeLabel:   v.Type.Label(),
		ValueLabel:  p.ValueLabel(v),
		Status:      string(v.Status),
		StatusLabel: v.Status.Label(),
		StartsAt:    v.StartsAt,
		ExpiresAt:   v.ExpiresAt,
		Owner:       owner,
	}
}

// ValueLabel renders the voucher value according to its type.
func (p *Presenter) ValueLabel(v domain.Voucher) string {
	switch v.Type {
	case domain.VoucherTypePercentage:
		return Percentage(v.Value)
	case domain.VoucherTypeFixed:
		return Money(v.Value, p.currencyOr(v.Currency))
	case domain.VoucherTypeFreeShipping:
		return domain.VoucherTypeFreeShipping.Label()
	default:
		return fmt.Sprintf("%d", v.Value)
	}
}

// UsageMetrics builds the usage section of v.
func (p *Presenter) UsageMetrics(v domain.Voucher) UsageMetrics {
	metrics := UsageMetrics{
		Applied:   v.AppliedCount,
		Redeemed:  v.TimesUsed,
		Remaining: unlimited,
		Progress:  noProgress,
	}
	if remaining := v.RemainingUses(); remaining != nil {
		metrics.Remaining = fmt.Sprintf("%d", *remaining)
	}
	if progress := v.UsageProgress(); progress != nil {
		metrics.Progress = fmt.Sprintf("%.1f%%", *progress)
	}
	return metrics
}

// WalletStats builds the wallet section of v.
func (p *Presenter) WalletStats(v domain.Voucher) WalletStats {
	return WalletStats{
		Total:     v.Wallet.Entries,
		Available: v.Wallet.Available,
		Claimed:   v.Wallet.Claimed,
		Redeemed:  v.Wallet.Redeemed,
	}
}

// Description renders markdown to sanitised HTML, or "-" when empty.
func (p *Presenter) Description(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return emptyDescription
	}
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(markdown), &buf); err != nil {
		return p.policy.Sanitize(markdown)
	}
	return strings.TrimSpace(p.policy.Sanitize(buf.String()))
}

// RecordData exposes the target-bearing fields of v as a data bag.
func RecordData(v domain.Voucher) targetsync.Data {
	return targetsync.Data{
		targetsync.FieldTargetDefinition: v.TargetDefinition,
		targetsync.FieldMetadata:         v.Metadata,
	}
}

func (p *Presenter) currencyOr(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return p.defaultCurrency
	}
	return code
}

func (p *Presenter) voucherURL(id string) string {
	if p.voucherURLPrefix == "" || id == "" {
		return ""
	}
	return p.voucherURLPrefix + "/" + id
}

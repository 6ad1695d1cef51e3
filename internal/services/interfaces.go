package services

import (
	"context"
	"time"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/vouchers/presentation"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
)

// VoucherService drives the voucher admin screens: preset options, form hydration, persistence of
// submitted forms and the read-only views.
type VoucherService interface {
	Presets(ctx context.Context) []preset.Option
	DetectPreset(ctx context.Context, dsl string) PresetDetection
	NewForm(ctx context.Context) (VoucherFormView, error)
	EditForm(ctx context.Context, voucherID string) (VoucherFormView, error)
	Create(ctx context.Context, form VoucherForm) (presentation.VoucherDetail, error)
	Update(ctx context.Context, voucherID string, form VoucherForm) (presentation.VoucherDetail, error)
	Get(ctx context.Context, voucherID string) (presentation.VoucherDetail, error)
	List(ctx context.Context, filter domain.VoucherListFilter) ([]presentation.VoucherRow, error)
	ListUsage(ctx context.Context, filter domain.VoucherUsageFilter) ([]presentation.UsageRow, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// VoucherForm is the editable state of a voucher form. ConditionTargetDSL is the source of truth
// on submit; ConditionTargetPreset only mirrors the editor's select.
type VoucherForm struct {
	Code                  string               `json:"code"`
	Name                  string               `json:"name"`
	Description           string               `json:"description"`
	Type                  domain.VoucherType   `json:"type"`
	Value                 int64                `json:"value"`
	Currency              string               `json:"currency"`
	Status                domain.VoucherStatus `json:"status"`
	StartsAt              *time.Time           `json:"starts_at,omitempty"`
	ExpiresAt             *time.Time           `json:"expires_at,omitempty"`
	UsageLimit            *int                 `json:"usage_limit,omitempty"`
	OwnerDisplayName      string               `json:"owner_display_name"`
	Metadata              map[string]any       `json:"metadata,omitempty"`
	ConditionTargetDSL    string               `json:"condition_target_dsl"`
	ConditionTargetPreset string               `json:"condition_target_preset"`
}

// VoucherFormView is a hydrated form together with the preset select options.
type VoucherFormView struct {
	VoucherID        string          `json:"voucher_id,omitempty"`
	Form             VoucherForm     `json:"form"`
	TargetDefinition map[string]any  `json:"target_definition"`
	Presets          []preset.Option `json:"presets"`
}

// PresetDetection is the editor feedback for a typed DSL. Fallback is set when no preset matched
// and Preset holds the default; Valid is false when the DSL does not parse.
type PresetDetection struct {
	DSL      string `json:"dsl"`
	Preset   string `json:"preset"`
	Label    string `json:"label"`
	Fallback bool   `json:"fallback"`
	Valid    bool   `json:"valid"`
}

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemHealthReport is the readiness report with build metadata attached.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]domain.SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// Package memory provides an in-process voucher store for local development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/repositories"
)

// Store keeps vouchers and usages in memory. Every read and write copies the nested maps so
// callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	vouchers map[string]domain.Voucher
	usages   []domain.VoucherUsage
	closed   bool
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{vouchers: make(map[string]domain.Voucher)}
	s.health, _ = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "memory", Check: s.ping},
	})
	return s
}

// Vouchers returns the voucher repository.
func (s *Store) Vouchers() repositories.VoucherRepository { return voucherRepository{store: s} }

// VoucherUsages returns the usage repository.
func (s *Store) VoucherUsages() repositories.VoucherUsageRepository {
	return usageRepository{store: s}
}

// Health reports the store as degraded once closed.
func (s *Store) Health() repositories.HealthRepository { return s.health }

// Close marks the store unavailable.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// AddUsage appends a redemption record.
func (s *Store) AddUsage(usage domain.VoucherUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage.Metadata = cloneMap(usage.Metadata)
	s.usages = append(s.usages, usage)
}

func (s *Store) ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repositories.NewUnavailableError("memory.ping", "store is closed")
	}
	return nil
}

type voucherRepository struct {
	store *Store
}

func (r voucherRepository) Insert(ctx context.Context, voucher domain.Voucher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(voucher.ID)
	if id == "" {
		return fmt.Errorf("memory.vouchers.insert: id is required")
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repositories.NewUnavailableError("memory.vouchers.insert", "store is closed")
	}
	if _, exists := s.vouchers[id]; exists {
		return repositories.NewConflictError("memory.vouchers.insert", fmt.Sprintf("voucher %s already exists", id))
	}
	s.vouchers[id] = cloneVoucher(voucher)
	return nil
}

func (r voucherRepository) Update(ctx context.Context, voucher domain.Voucher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(voucher.ID)

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repositories.NewUnavailableError("memory.vouchers.update", "store is closed")
	}
	if _, exists := s.vouchers[id]; !exists {
		return repositories.NewNotFoundError("memory.vouchers.update", fmt.Sprintf("voucher %s not found", id))
	}
	s.vouchers[id] = cloneVoucher(voucher)
	return nil
}

func (r voucherRepository) FindByID(ctx context.Context, voucherID string) (domain.Voucher, error) {
	if err := ctx.Err(); err != nil {
		return domain.Voucher{}, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	voucher, ok := s.vouchers[strings.TrimSpace(voucherID)]
	if !ok {
		return domain.Voucher{}, repositories.NewNotFoundError("memory.vouchers.get", fmt.Sprintf("voucher %s not found", voucherID))
	}
	return cloneVoucher(voucher), nil
}

func (r voucherRepository) List(ctx context.Context, filter domain.VoucherListFilter) ([]domain.Voucher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	vouchers := make([]domain.Voucher, 0, len(s.vouchers))
	for _, voucher := range s.vouchers {
		if filter.Status != "" && voucher.Status != filter.Status {
			continue
		}
		if filter.Type != "" && voucher.Type != filter.Type {
			continue
		}
		vouchers = append(vouchers, cloneVoucher(voucher))
	}
	sort.Slice(vouchers, func(i, j int) bool {
		if !vouchers[i].UpdatedAt.Equal(vouchers[j].UpdatedAt) {
			return vouchers[i].UpdatedAt.After(vouchers[j].UpdatedAt)
		}
		return vouchers[i].ID < vouchers[j].ID
	})
	if filter.Limit > 0 && len(vouchers) > filter.Limit {
		vouchers = vouchers[:filter.Limit]
	}
	return vouchers, nil
}

type usageRepository struct {
	store *Store
}

func (r usageRepository) List(ctx context.Context, filter domain.VoucherUsageFilter) ([]domain.VoucherUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	voucherID := strings.TrimSpace(filter.VoucherID)
	usages := make([]domain.VoucherUsage, 0, len(s.usages))
	for _, usage := range s.usages {
		if voucherID != "" && usage.VoucherID != voucherID {
			continue
		}
		if filter.Channel != "" && usage.Channel != filter.Channel {
			continue
		}
		usage.Metadata = cloneMap(usage.Metadata)
		usages = append(usages, usage)
	}
	sort.SliceStable(usages, func(i, j int) bool {
		return usages[i].UsedAt.After(usages[j].UsedAt)
	})
	if filter.Limit > 0 && len(usages) > filter.Limit {
		usages = usages[:filter.Limit]
	}
	return usages, nil
}

// seedFile is the YAML layout accepted by LoadSeed.
type seedFile struct {
	Vouchers []seedVoucher `yaml:"vouchers"`
	Usages   []seedUsage   `yaml:"usages"`
}

type seedVoucher struct {
	ID               string         `yaml:"id"`
	Code             string         `yaml:"code"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	Type             string         `yaml:"type"`
	Value            int64          `yaml:"value"`
	Currency         string         `yaml:"currency"`
	Status           string         `yaml:"status"`
	StartsAt         *time.Time     `yaml:"starts_at"`
	ExpiresAt        *time.Time     `yaml:"expires_at"`
	UsageLimit       *int           `yaml:"usage_limit"`
	TimesUsed        int            `yaml:"times_used"`
	AppliedCount     int            `yaml:"applied_count"`
	OwnerDisplayName string         `yaml:"owner_display_name"`
	Wallet           seedWallet     `yaml:"wallet"`
	TargetDefinition map[string]any `yaml:"target_definition"`
	Metadata         map[string]any `yaml:"metadata"`
	CreatedAt        time.Time      `yaml:"created_at"`
	UpdatedAt        time.Time      `yaml:"updated_at"`
}

type seedWallet struct {
	Entries   int `yaml:"entries"`
	Available int `yaml:"available"`
	Claimed   int `yaml:"claimed"`
	Redeemed  int `yaml:"redeemed"`
}

type seedUsage struct {
	ID             string         `yaml:"id"`
	VoucherID      string         `yaml:"voucher_id"`
	VoucherCode    string         `yaml:"voucher_code"`
	Channel        string         `yaml:"channel"`
	DiscountAmount int64          `yaml:"discount_amount"`
	Currency       string         `yaml:"currency"`
	RedeemedByType string         `yaml:"redeemed_by_type"`
	RedeemedByID   string         `yaml:"redeemed_by_id"`
	OrderNumber    string         `yaml:"order_number"`
	UserEmail      string         `yaml:"user_email"`
	Notes          string         `yaml:"notes"`
	Metadata       map[string]any `yaml:"metadata"`
	UsedAt         time.Time      `yaml:"used_at"`
}

// LoadSeedFile reads a YAML seed from disk into the store.
func (s *Store) LoadSeedFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("memory: read seed %s: %w", path, err)
	}
	return s.LoadSeed(ctx, raw)
}

// LoadSeed decodes a YAML document with "vouchers" and "usages" lists into the store.
func (s *Store) LoadSeed(ctx context.Context, raw []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("memory: decode seed: %w", err)
	}

	vouchers := voucherRepository{store: s}
	for _, v := range seed.Vouchers {
		voucher := domain.Voucher{
			ID:               v.ID,
			Code:             v.Code,
			Name:             v.Name,
			Description:      v.Description,
			Type:             domain.VoucherType(v.Type),
			Value:            v.Value,
			Currency:         v.Currency,
			Status:           domain.VoucherStatus(v.Status),
			StartsAt:         v.StartsAt,
			ExpiresAt:        v.ExpiresAt,
			UsageLimit:       v.UsageLimit,
			TimesUsed:        v.TimesUsed,
			AppliedCount:     v.AppliedCount,
			OwnerDisplayName: v.OwnerDisplayName,
			Wallet:           domain.VoucherWalletStats(v.Wallet),
			TargetDefinition: v.TargetDefinition,
			Metadata:         v.Metadata,
			CreatedAt:        v.CreatedAt,
			UpdatedAt:        v.UpdatedAt,
		}
		if err := vouchers.Insert(ctx, voucher); err != nil {
			return fmt.Errorf("memory: seed voucher %q: %w", v.ID, err)
		}
	}
	for _, u := range seed.Usages {
		s.AddUsage(domain.VoucherUsage{
			ID:             u.ID,
			VoucherID:      u.VoucherID,
			VoucherCode:    u.VoucherCode,
			Channel:        domain.VoucherUsageChannel(u.Channel),
			DiscountAmount: u.DiscountAmount,
			Currency:       u.Currency,
			RedeemedByType: u.RedeemedByType,
			RedeemedByID:   u.RedeemedByID,
			OrderNumber:    u.OrderNumber,
			UserEmail:      u.UserEmail,
			Notes:          u.Notes,
			Metadata:       u.Metadata,
			UsedAt:         u.UsedAt,
		})
	}
	return nil
}

func cloneVoucher(v domain.Voucher) domain.Voucher {
	v.TargetDefinition = cloneMap(v.TargetDefinition)
	v.Metadata = cloneMap(v.Metadata)
	if v.StartsAt != nil {
		starts := *v.StartsAt
		v.StartsAt = &starts
	}
	if v.ExpiresAt != nil {
		expires := *v.ExpiresAt
		v.ExpiresAt = &expires
	}
	if v.UsageLimit != nil {
		limit := *v.UsageLimit
		v.UsageLimit = &limit
	}
	return v
}

// cloneMap deep-copies nested maps and slices and preserves nil.
func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"finitefield.org/hanko-vouchers/internal/domain"
	pfirestore "finitefield.org/hanko-vouchers/internal/platform/firestore"
	"finitefield.org/hanko-vouchers/internal/repositories"
)

const defaultVouchersCollection = "vouchers"

// VoucherRepository persists vouchers in Firestore.
type VoucherRepository struct {
	base *pfirestore.BaseRepository[domain.Voucher]
}

var _ repositories.VoucherRepository = (*VoucherRepository)(nil)

// NewVoucherRepository constructs a Firestore-backed voucher repository.
func NewVoucherRepository(provider *pfirestore.Provider, collection string, txOpts ...pfirestore.TxOption) (*VoucherRepository, error) {
	if provider == nil {
		return nil, errors.New("voucher repository: firestore provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultVouchersCollection
	}

	encoder := func(value domain.Voucher) (any, error) {
		return encodeVoucherDocument(value), nil
	}
	decoder := func(snap *firestore.DocumentSnapshot) (domain.Voucher, error) {
		var doc voucherDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Voucher{}, err
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = snap.CreateTime
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return decodeVoucherDocument(snap.Ref.ID, doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.Voucher](provider, collection, encoder, decoder, txOpts...)
	return &VoucherRepository{base: base}, nil
}

// Insert stores a new voucher. An existing ID is reported as a conflict.
func (r *VoucherRepository) Insert(ctx context.Context, voucher domain.Voucher) error {
	if r == nil || r.base == nil {
		return errors.New("voucher repository not initialised")
	}
	id := strings.TrimSpace(voucher.ID)
	if id == "" {
		return errors.New("voucher repository: id is required")
	}
	_, err := r.base.Create(ctx, id, voucher)
	return err
}

// Update replaces the voucher document. Metadata is written as given, so a nil map clears it.
func (r *VoucherRepository) Update(ctx context.Context, voucher domain.Voucher) error {
	if r == nil || r.base == nil {
		return errors.New("voucher repository not initialised")
	}
	id := strings.TrimSpace(voucher.ID)
	if id == "" {
		return errors.New("voucher repository: id is required")
	}
	return r.base.Replace(ctx, id, voucher)
}

// FindByID loads a voucher by its identifier.
func (r *VoucherRepository) FindByID(ctx context.Context, voucherID string) (domain.Voucher, error) {
	if r == nil || r.base == nil {
		return domain.Voucher{}, errors.New("voucher repository not initialised")
	}
	voucherID = strings.TrimSpace(voucherID)
	if voucherID == "" {
		return domain.Voucher{}, errors.New("voucher repository: id is required")
	}
	doc, err := r.base.Get(ctx, voucherID)
	if err != nil {
		return domain.Voucher{}, err
	}
	return doc.Data, nil
}

// List returns vouchers ordered by most recent update.
func (r *VoucherRepository) List(ctx context.Context, filter domain.VoucherListFilter) ([]domain.Voucher, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("voucher repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.Type != "" {
			q = q.Where("type", "==", string(filter.Type))
		}
		q = q.OrderBy("updated_at", firestore.Desc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	vouchers := make([]domain.Voucher, 0, len(docs))
	for _, doc := range docs {
		vouchers = append(vouchers, doc.Data)
	}
	return vouchers, nil
}

type voucherDocument struct {
	Code             string                `firestore:"code"`
	Name             string                `firestore:"name"`
	Description      string                `firestore:"description"`
	Type             string                `firestore:"type"`
	Value            int64                 `firestore:"value"`
	Currency         string                `firestore:"currency"`
	Status           string                `firestore:"status"`
	StartsAt         *time.Time            `firestore:"starts_at"`
	ExpiresAt        *time.Time            `firestore:"expires_at"`
	UsageLimit       *int64                `firestore:"usage_limit"`
	TimesUsed        int64                 `firestore:"times_used"`
	AppliedCount     int64                 `firestore:"applied_count"`
	OwnerDisplayName string                `firestore:"owner_display_name"`
	Wallet           voucherWalletDocument `firestore:"wallet"`
	TargetDefinition map[string]any        `firestore:"target_definition"`
	Metadata         map[string]any        `firestore:"metadata"`
	CreatedAt        time.Time             `firestore:"created_at"`
	UpdatedAt        time.Time             `firestore:"updated_at"`
}

type voucherWalletDocument struct {
	Entries   int64 `firestore:"entries"`
	Available int64 `firestore:"available"`
	Claimed   int64 `firestore:"claimed"`
	Redeemed  int64 `firestore:"redeemed"`
}

func encodeVoucherDocument(v domain.Voucher) voucherDocument {
	doc := voucherDocument{
		Code:             v.Code,
		Name:             v.Name,
		Description:      v.Description,
		Type:             string(v.Type),
		Value:            v.Value,
		Currency:         v.Currency,
		Status:           string(v.Status),
		StartsAt:         v.StartsAt,
		ExpiresAt:        v.ExpiresAt,
		TimesUsed:        int64(v.TimesUsed),
		AppliedCount:     int64(v.AppliedCount),
		OwnerDisplayName: v.OwnerDisplayName,
		Wallet: voucherWalletDocument{
			Entries:   int64(v.Wallet.Entries),
			Available: int64(v.Wallet.Available),
			Claimed:   int64(v.Wallet.Claimed),
			Redeemed:  int64(v.Wallet.Redeemed),
		},
		TargetDefinition: v.TargetDefinition,
		Metadata:         v.Metadata,
		CreatedAt:        v.CreatedAt.UTC(),
		UpdatedAt:        v.UpdatedAt.UTC(),
	}
	if v.UsageLimit != nil {
		limit := int64(*v.UsageLimit)
		doc.UsageLimit = &limit
	}
	return doc
}

func decodeVoucherDocument(id string, doc voucherDocument) domain.Voucher {
	v := domain.Voucher{
		ID:               id,
		Code:             doc.Code,
		Name:             doc.Name,
		Description:      doc.Description,
		Type:             domain.VoucherType(doc.Type),
		Value:            doc.Value,
		Currency:         doc.Currency,
		Status:           domain.VoucherStatus(doc.Status),
		StartsAt:         doc.StartsAt,
		ExpiresAt:        doc.ExpiresAt,
		TimesUsed:        int(doc.TimesUsed),
		AppliedCount:     int(doc.AppliedCount),
		OwnerDisplayName: doc.OwnerDisplayName,
		Wallet: domain.VoucherWalletStats{
			Entries:   int(doc.Wallet.Entries),
			Available: int(doc.Wallet.Available),
			Claimed:   int(doc.Wallet.Claimed),
			Redeemed:  int(doc.Wallet.Redeemed),
		},
		TargetDefinition: doc.TargetDefinition,
		Metadata:         doc.Metadata,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.UsageLimit != nil {
		limit := int(*doc.UsageLimit)
		v.UsageLimit = &limit
	}
	return v
}

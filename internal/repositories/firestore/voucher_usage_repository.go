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

const (
	defaultUsagesCollection = "voucherUsages"
	defaultUsageLimit       = 200
)

// VoucherUsageRepository reads voucher redemptions from Firestore.
type VoucherUsageRepository struct {
	base *pfirestore.BaseRepository[domain.VoucherUsage]
}

var _ repositories.VoucherUsageRepository = (*VoucherUsageRepository)(nil)

// NewVoucherUsageRepository constructs a Firestore-backed usage repository.
func NewVoucherUsageRepository(provider *pfirestore.Provider, collection string, txOpts ...pfirestore.TxOption) (*VoucherUsageRepository, error) {
	if provider == nil {
		return nil, errors.New("voucher usage repository: firestore provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultUsagesCollection
	}

	encoder := func(value domain.VoucherUsage) (any, error) {
		return encodeUsageDocument(value), nil
	}
	decoder := func(snap *firestore.DocumentSnapshot) (domain.VoucherUsage, error) {
		var doc voucherUsageDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.VoucherUsage{}, err
		}
		return decodeUsageDocument(snap.Ref.ID, doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.VoucherUsage](provider, collection, encoder, decoder, txOpts...)
	return &VoucherUsageRepository{base: base}, nil
}

// Record stores a redemption. Usages are written by checkout flows; the admin API only reads them.
func (r *VoucherUsageRepository) Record(ctx context.Context, usage domain.VoucherUsage) error {
	if r == nil || r.base == nil {
		return errors.New("voucher usage repository not initialised")
	}
	id := strings.TrimSpace(usage.ID)
	if id == "" {
		return errors.New("voucher usage repository: id is required")
	}
	_, err := r.base.Create(ctx, id, usage)
	return err
}

// List returns usages newest first.
func (r *VoucherUsageRepository) List(ctx context.Context, filter domain.VoucherUsageFilter) ([]domain.VoucherUsage, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("voucher usage repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultUsageLimit
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if id := strings.TrimSpace(filter.VoucherID); id != "" {
			q = q.Where("voucher_id", "==", id)
		}
		if filter.Channel != "" {
			q = q.Where("channel", "==", string(filter.Channel))
		}
		return q.OrderBy("used_at", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	usages := make([]domain.VoucherUsage, 0, len(docs))
	for _, doc := range docs {
		usages = append(usages, doc.Data)
	}
	return usages, nil
}

type voucherUsageDocument struct {
	VoucherID      string         `firestore:"voucher_id"`
	VoucherCode    string         `firestore:"voucher_code"`
	Channel        string         `firestore:"channel"`
	DiscountAmount int64          `firestore:"discount_amount"`
	Currency       string         `firestore:"currency"`
	RedeemedByType string         `firestore:"redeemed_by_type"`
	RedeemedByID   string         `firestore:"redeemed_by_id"`
	OrderNumber    string         `firestore:"order_number"`
	UserEmail      string         `firestore:"user_email"`
	Notes          string         `firestore:"notes"`
	Metadata       map[string]any `firestore:"metadata"`
	UsedAt         time.Time      `firestore:"used_at"`
}

func encodeUsageDocument(u domain.VoucherUsage) voucherUsageDocument {
	return voucherUsageDocument{
		VoucherID:      u.VoucherID,
		VoucherCode:    u.VoucherCode,
		Channel:        string(u.Channel),
		DiscountAmount: u.DiscountAmount,
		Currency:       u.Currency,
		RedeemedByType: u.RedeemedByType,
		RedeemedByID:   u.RedeemedByID,
		OrderNumber:    u.OrderNumber,
		UserEmail:      u.UserEmail,
		Notes:          u.Notes,
		Metadata:       u.Metadata,
		UsedAt:         u.UsedAt.UTC(),
	}
}

func decodeUsageDocument(id string, doc voucherUsageDocument) domain.VoucherUsage {
	return domain.VoucherUsage{
		ID:             id,
		VoucherID:      doc.VoucherID,
		VoucherCode:    doc.VoucherCode,
		Channel:        domain.VoucherUsageChannel(doc.Channel),
		DiscountAmount: doc.DiscountAmount,
		Currency:       doc.Currency,
		RedeemedByType: doc.RedeemedByType,
		RedeemedByID:   doc.RedeemedByID,
		OrderNumber:    doc.OrderNumber,
		UserEmail:      doc.UserEmail,
		Notes:          doc.Notes,
		Metadata:       doc.Metadata,
		UsedAt:         doc.UsedAt,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/platform/metrics"
	"finitefield.org/hanko-vouchers/internal/platform/observability"
	"finitefield.org/hanko-vouchers/internal/repositories"
	"finitefield.org/hanko-vouchers/internal/vouchers/presentation"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

const (
	operationCreate = "create"
	operationUpdate = "update"
)

// VoucherServiceDeps bundles dependencies required to construct a VoucherService implementation.
type VoucherServiceDeps struct {
	Vouchers     repositories.VoucherRepository
	Usages       repositories.VoucherUsageRepository
	Synchronizer *targetsync.Synchronizer
	Presenter    *presentation.Presenter
	Metrics      *metrics.Metrics
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type voucherService struct {
	vouchers  repositories.VoucherRepository
	usages    repositories.VoucherUsageRepository
	sync      *targetsync.Synchronizer
	presenter *presentation.Presenter
	metrics   *metrics.Metrics
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

var _ VoucherService = (*voucherService)(nil)

// NewVoucherService wires a VoucherService backed by the provided repositories.
func NewVoucherService(deps VoucherServiceDeps) (VoucherService, error) {
	if deps.Vouchers == nil || deps.Usages == nil {
		return nil, ErrVoucherRepositoryMissing
	}

	sync := deps.Synchronizer
	if sync == nil {
		sync = targetsync.New(nil)
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = presentation.New(presentation.Options{})
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &voucherService{
		vouchers:  deps.Vouchers,
		usages:    deps.Usages,
		sync:      sync,
		presenter: presenter,
		metrics:   deps.Metrics,
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

func (s *voucherService) Presets(context.Context) []preset.Option {
	return preset.Options()
}

func (s *voucherService) DetectPreset(_ context.Context, dsl string) PresetDetection {
	canonical, _, ok := s.sync.Normalise(dsl)
	result := PresetDetection{DSL: canonical, Valid: ok}
	if !ok {
		result.DSL = strings.TrimSpace(dsl)
	}

	detected, found := s.sync.Detector().Detect(dsl)
	if !found {
		detected = preset.Default()
		result.Fallback = true
	}
	result.Preset = detected.Value()
	result.Label = detected.Label()
	s.metrics.ObserveDetection(result.Preset)
	return result
}

func (s *voucherService) NewForm(ctx context.Context) (VoucherFormView, error) {
	hydrated, err := s.hydrate(ctx, targetsync.Data{})
	if err != nil {
		return VoucherFormView{}, err
	}
	base := VoucherForm{
		Type:   domain.VoucherTypePercentage,
		Status: domain.VoucherStatusDraft,
	}
	return formView("", base, hydrated), nil
}

func (s *voucherService) EditForm(ctx context.Context, voucherID string) (VoucherFormView, error) {
	voucher, err := s.find(ctx, voucherID)
	if err != nil {
		return VoucherFormView{}, err
	}
	hydrated, err := s.hydrate(ctx, presentation.RecordData(voucher))
	if err != nil {
		s.logger(ctx, "voucher.condition_target.hydrate_failed", map[string]any{
			"voucherID": voucher.ID,
			"error":     err.Error(),
		})
		return VoucherFormView{}, err
	}
	return formView(voucher.ID, voucherForm(voucher), hydrated), nil
}

func (s *voucherService) Create(ctx context.Context, form VoucherForm) (presentation.VoucherDetail, error) {
	data := targetsync.Data{}
	applyFormTarget(data, form)

	definition, metadata, err := s.persist(ctx, operationCreate, data)
	if err != nil {
		return presentation.VoucherDetail{}, err
	}

	now := s.clock()
	voucher := domain.Voucher{ID: s.newID(), CreatedAt: now}
	applyForm(&voucher, form)
	voucher.TargetDefinition = definition
	voucher.Metadata = metadata
	voucher.UpdatedAt = now

	if err := s.vouchers.Insert(ctx, voucher); err != nil {
		return presentation.VoucherDetail{}, mapVoucherRepositoryError(err)
	}
	s.logger(ctx, "voucher.created", map[string]any{
		"voucherID": voucher.ID,
		"code":      voucher.Code,
	})
	return s.presenter.Detail(voucher), nil
}

func (s *voucherService) Update(ctx context.Context, voucherID string, form VoucherForm) (presentation.VoucherDetail, error) {
	voucher, err := s.find(ctx, voucherID)
	if err != nil {
		return presentation.VoucherDetail{}, err
	}

	data := presentation.RecordData(voucher)
	applyFormTarget(data, form)

	definition, metadata, err := s.persist(ctx, operationUpdate, data)
	if err != nil {
		return presentation.VoucherDetail{}, err
	}

	applyForm(&voucher, form)
	voucher.TargetDefinition = definition
	voucher.Metadata = metadata
	voucher.UpdatedAt = s.clock()

	if err := s.vouchers.Update(ctx, voucher); err != nil {
		return presentation.VoucherDetail{}, mapVoucherRepositoryError(err)
	}
	s.logger(ctx, "voucher.updated", map[string]any{
		"voucherID": voucher.ID,
		"code":      voucher.Code,
	})
	return s.presenter.Detail(voucher), nil
}

func (s *voucherService) Get(ctx context.Context, voucherID string) (presentation.VoucherDetail, error) {
	voucher, err := s.find(ctx, voucherID)
	if err != nil {
		return presentation.VoucherDetail{}, err
	}
	return s.presenter.Detail(voucher), nil
}

func (s *voucherService) List(ctx context.Context, filter domain.VoucherListFilter) ([]presentation.VoucherRow, error) {
	vouchers, err := s.vouchers.List(ctx, filter)
	if err != nil {
		return nil, mapVoucherRepositoryError(err)
	}
	rows := make([]presentation.VoucherRow, 0, len(vouchers))
	for _, voucher := range vouchers {
		rows = append(rows, s.presenter.Row(voucher))
	}
	return rows, nil
}

func (s *voucherService) ListUsage(ctx context.Context, filter domain.VoucherUsageFilter) ([]presentation.UsageRow, error) {
	filter.Channel = domain.VoucherUsageChannel(strings.ToLower(strings.TrimSpace(string(filter.Channel))))
	if filter.Channel != "" && !slices.Contains(domain.VoucherUsageChannels(), filter.Channel) {
		return nil, ErrVoucherInvalidChannel
	}
	filter.VoucherID = strings.TrimSpace(filter.VoucherID)

	usages, err := s.usages.List(ctx, filter)
	if err != nil {
		return nil, mapVoucherRepositoryError(err)
	}
	return s.presenter.UsageRows(usages, filter.Channel), nil
}

func (s *voucherService) find(ctx context.Context, voucherID string) (domain.Voucher, error) {
	voucherID = strings.TrimSpace(voucherID)
	if voucherID == "" {
		return domain.Voucher{}, ErrVoucherInvalidID
	}
	voucher, err := s.vouchers.FindByID(ctx, voucherID)
	if err != nil {
		return domain.Voucher{}, mapVoucherRepositoryError(err)
	}
	return voucher, nil
}

func (s *voucherService) hydrate(ctx context.Context, data targetsync.Data) (targetsync.Data, error) {
	_, span := observability.StartSpan(ctx, "vouchers.condition_target.hydrate")
	defer span.End()

	hydrated, err := s.sync.Hydrate(data)
	if err != nil {
		var stored *targetsync.StoredDefinitionError
		if errors.As(err, &stored) {
			s.metrics.ObserveHydrateFailure(string(stored.Source))
			span.SetAttributes(attribute.String("condition_target.source", string(stored.Source)))
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "stored condition target is invalid")
		return nil, fmt.Errorf("%w: %w", ErrVoucherStoredTargetInvalid, err)
	}
	return hydrated, nil
}

// persist runs the submitted bag through the synchronizer and returns the record fields to save.
// Validation errors are returned unchanged.
func (s *voucherService) persist(ctx context.Context, operation string, data targetsync.Data) (map[string]any, map[string]any, error) {
	ctx, span := observability.StartSpan(ctx, "vouchers.condition_target.persist",
		attribute.String("voucher.operation", operation),
	)
	defer span.End()

	out, err := s.sync.Persist(data)
	if err != nil {
		outcome := metrics.OutcomeInvalid
		if errors.Is(err, targetsync.ErrEmptyInput) {
			outcome = metrics.OutcomeEmpty
		}
		s.metrics.ObservePersist(operation, outcome)
		span.SetStatus(otelcodes.Error, outcome)
		s.logger(ctx, "voucher.condition_target.rejected", map[string]any{
			"operation": operation,
			"outcome":   outcome,
			"error":     err.Error(),
		})
		return nil, nil, err
	}

	s.metrics.ObservePersist(operation, metrics.OutcomeOK)
	if canonical, detected, ok := s.sync.Normalise(data.DSL()); ok {
		s.metrics.ObserveDetection(detected.Value())
		span.SetAttributes(
			attribute.String("condition_target.dsl", canonical),
			attribute.String("condition_target.preset", detected.Value()),
		)
	}

	metadata, _ := out[targetsync.FieldMetadata].(map[string]any)
	return out.TargetDefinition(), metadata, nil
}

func mapVoucherRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrVoucherNotFound
		case repoErr.IsConflict():
			return ErrVoucherConflict
		case repoErr.IsUnavailable():
			return ErrVoucherUnavailable
		}
	}
	return err
}

func applyFormTarget(data targetsync.Data, form VoucherForm) {
	data[targetsync.FieldConditionTargetDSL] = form.ConditionTargetDSL
	data[targetsync.FieldConditionTargetPreset] = form.ConditionTargetPreset
	if form.Metadata != nil {
		data[targetsync.FieldMetadata] = form.Metadata
	}
}

func applyForm(v *domain.Voucher, form VoucherForm) {
	v.Code = strings.ToUpper(strings.TrimSpace(form.Code))
	v.Name = strings.TrimSpace(form.Name)
	v.Description = form.Description
	v.Type = form.Type
	v.Value = form.Value
	v.Currency = strings.ToUpper(strings.TrimSpace(form.Currency))
	v.Status = form.Status
	v.StartsAt = form.StartsAt
	v.ExpiresAt = form.ExpiresAt
	v.UsageLimit = form.UsageLimit
	v.OwnerDisplayName = strings.TrimSpace(form.OwnerDisplayName)
}

func voucherForm(v domain.Voucher) VoucherForm {
	return VoucherForm{
		Code:             v.Code,
		Name:             v.Name,
		Description:      v.Description,
		Type:             v.Type,
		Value:            v.Value,
		Currency:         v.Currency,
		Status:           v.Status,
		StartsAt:         v.StartsAt,
		ExpiresAt:        v.ExpiresAt,
		UsageLimit:       v.UsageLimit,
		OwnerDisplayName: v.OwnerDisplayName,
	}
}

func formView(voucherID string, form VoucherForm, hydrated targetsync.Data) VoucherFormView {
	form.ConditionTargetDSL = hydrated.DSL()
	form.ConditionTargetPreset = hydrated.Preset()
	if metadata := hydrated.Metadata(); len(metadata) > 0 {
		form.Metadata = metadata
	}
	return VoucherFormView{
		VoucherID:        voucherID,
		Form:             form,
		TargetDefinition: hydrated.TargetDefinition(),
		Presets:          preset.Options(),
	}
}

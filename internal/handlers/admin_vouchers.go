package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/platform/auth"
	"finitefield.org/hanko-vouchers/internal/platform/httpx"
	"finitefield.org/hanko-vouchers/internal/services"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

const (
	defaultVoucherListLimit = 50
	maxVoucherListLimit     = 200
)

// AdminVoucherHandlers exposes the voucher editor endpoints for staff.
type AdminVoucherHandlers struct {
	authn    *auth.Authenticator
	vouchers services.VoucherService
}

// NewAdminVoucherHandlers constructs the handlers. A nil authenticator leaves the routes open.
func NewAdminVoucherHandlers(authn *auth.Authenticator, vouchers services.VoucherService) *AdminVoucherHandlers {
	return &AdminVoucherHandlers{
		authn:    authn,
		vouchers: vouchers,
	}
}

// Routes wires the voucher endpoints into the admin router group.
func (h *AdminVoucherHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
	}

	r.Get("/condition-targets/presets", h.listPresets)
	r.Post("/condition-targets/detect", h.detectPreset)

	r.Route("/vouchers", func(rt chi.Router) {
		rt.Get("/", h.listVouchers)
		rt.Post("/", h.createVoucher)
		rt.Get("/new", h.newVoucherForm)
		rt.Route("/{voucherID}", func(item chi.Router) {
			item.Get("/", h.getVoucher)
			item.Put("/", h.updateVoucher)
			item.Get("/edit", h.editVoucherForm)
		})
	})

	r.Get("/voucher-usages", h.listUsages)
}

type detectPresetRequest struct {
	DSL string `json:"dsl"`
}

func (h *AdminVoucherHandlers) listPresets(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"presets": h.vouchers.Presets(r.Context())})
}

func (h *AdminVoucherHandlers) detectPreset(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	var req detectPresetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.vouchers.DetectPreset(r.Context(), req.DSL))
}

func (h *AdminVoucherHandlers) listVouchers(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	filter := domain.VoucherListFilter{
		Status: domain.VoucherStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		Type:   domain.VoucherType(strings.ToLower(strings.TrimSpace(query.Get("type")))),
		Limit:  limit,
	}
	rows, err := h.vouchers.List(r.Context(), filter)
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"vouchers": rows})
}

func (h *AdminVoucherHandlers) newVoucherForm(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	view, err := h.vouchers.NewForm(r.Context())
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *AdminVoucherHandlers) editVoucherForm(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	view, err := h.vouchers.EditForm(r.Context(), chi.URLParam(r, "voucherID"))
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *AdminVoucherHandlers) createVoucher(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	var form services.VoucherForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	detail, err := h.vouchers.Create(r.Context(), form)
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, detail)
}

func (h *AdminVoucherHandlers) getVoucher(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	detail, err := h.vouchers.Get(r.Context(), chi.URLParam(r, "voucherID"))
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *AdminVoucherHandlers) updateVoucher(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	var form services.VoucherForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	detail, err := h.vouchers.Update(r.Context(), chi.URLParam(r, "voucherID"), form)
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *AdminVoucherHandlers) listUsages(w http.ResponseWriter, r *http.Request) {
	if h.vouchers == nil {
		writeServiceUnavailable(w, r)
		return
	}
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	filter := domain.VoucherUsageFilter{
		VoucherID: strings.TrimSpace(query.Get("voucher_id")),
		Channel:   domain.VoucherUsageChannel(strings.TrimSpace(query.Get("channel"))),
		Limit:     limit,
	}
	rows, err := h.vouchers.ListUsage(r.Context(), filter)
	if err != nil {
		writeVoucherError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"usages": rows})
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultVoucherListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxVoucherListLimit {
		limit = maxVoucherListLimit
	}
	return limit, nil
}

func writeServiceUnavailable(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "voucher service is not configured", http.StatusServiceUnavailable))
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	message := "request body must be a json object"
	if errors.Is(err, httpx.ErrEmptyBody) {
		message = "request body is required"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeVoucherError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var validation *targetsync.ValidationError
	if errors.As(err, &validation) {
		httpx.WriteError(ctx, w, httpx.NewValidationError(validation.Message, validation.Fields()))
		return
	}

	switch {
	case errors.Is(err, services.ErrVoucherInvalidID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_voucher_id", "voucher id is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrVoucherInvalidChannel):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_channel", "unknown usage channel", http.StatusBadRequest))
	case errors.Is(err, services.ErrVoucherNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("voucher_not_found", "voucher not found", http.StatusNotFound))
	case errors.Is(err, services.ErrVoucherConflict):
		httpx.WriteError(ctx, w, httpx.NewError("voucher_conflict", "voucher already exists", http.StatusConflict))
	case errors.Is(err, services.ErrVoucherStoredTargetInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("stored_condition_target_invalid", "stored condition target can no longer be parsed", http.StatusConflict))
	case errors.Is(err, services.ErrVoucherUnavailable), errors.Is(err, services.ErrVoucherRepositoryMissing):
		httpx.WriteError(ctx, w, httpx.NewError("voucher_unavailable", "voucher store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("voucher_error", "failed to process voucher request", http.StatusInternalServerError))
	}
}

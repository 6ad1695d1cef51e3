package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-vouchers/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "trace-1"})

	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NewValidationError("condition target is invalid", map[string]string{
		"condition_target_dsl": "Condition target DSL cannot be empty.",
	}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "validation_failed", body["error"])
	require.Equal(t, "condition target is invalid", body["message"])
	require.EqualValues(t, 422, body["status"])
	require.Equal(t, "req-1", body["request_id"])
	require.Equal(t, "trace-1", body["trace_id"])
	require.Equal(t, map[string]any{"condition_target_dsl": "Condition target DSL cannot be empty."}, body["fields"])
}

func TestNewErrorSanitises(t *testing.T) {
	t.Parallel()

	err := NewError(" bad_request\n", "line one\nline two", 0)
	require.Equal(t, "bad_request", err.Code)
	require.Equal(t, "line one line two", err.Message)
	require.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		DSL string `json:"dsl"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dsl":"cart@tax"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	var got payload
	require.NoError(t, DecodeJSON(req, &got))
	require.Equal(t, "cart@tax", got.DSL)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.True(t, errors.Is(DecodeJSON(req, &got), ErrEmptyBody))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	require.Error(t, DecodeJSON(req, &got))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dsl":"a"}{"dsl":"b"}`))
	require.Error(t, DecodeJSON(req, &got))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`dsl=a`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Error(t, DecodeJSON(req, &got))
}

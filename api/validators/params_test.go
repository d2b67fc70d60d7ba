package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUIDParam(withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", id.String()), "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ParseUUIDParam(withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "nope"), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePagination(t *testing.T) {
	params, err := ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil))
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, params)

	params, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, pagination.DefaultLimit, params.Limit)

	for _, raw := range []string{"1000", "0", "ten"} {
		_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit="+raw, nil))
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "limit %q", raw)
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("amount", " 150000.50 ")
	require.NoError(t, err)
	require.Equal(t, "150000.5", amount.String())

	for _, raw := range []string{"", "abc", "0", "-5"} {
		_, err := ParseAmount("amount", raw)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "raw %q", raw)
	}
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Happy birthday\nAn", CleanText("  Happy\x00 birthday\nAn\x07  ", 0))
	require.Equal(t, "Bánh", CleanText("Bánh kem dâu", 4))
	require.Equal(t, "", CleanText(" \t ", 10))
}

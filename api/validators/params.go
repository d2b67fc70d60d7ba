package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

// ParseUUIDParam reads a chi path parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// ParsePagination reads limit and cursor query parameters.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := queryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// ParseAmount parses a strictly positive decimal money amount.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must be a decimal amount"})
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must be positive"})
	}
	return amount, nil
}

func queryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < lo || value > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{key: "must be an integer between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi)})
	}
	return value, nil
}

// CleanText trims free text, drops control characters other than newlines and
// caps the result at maxRunes characters.
func CleanText(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if maxRunes > 0 {
		if runes := []rune(cleaned); len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return cleaned
}

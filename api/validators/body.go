package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("money", validMoney)
	return v
}

// validMoney accepts positive decimal strings with at most two fractional
// digits, matching the numeric(14,2) money columns.
func validMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	if err != nil || !d.IsPositive() {
		return false
	}
	return d.Exponent() >= -2 || d.Equal(d.Truncate(2))
}

// DecodeJSONBody decodes a required JSON object into dest and validates it.
func DecodeJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, false)
}

// DecodeOptionalJSONBody is DecodeJSONBody for endpoints where the body may be
// omitted entirely.
func DecodeOptionalJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, true)
}

func decode(r *http.Request, dest any, optional bool) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dest)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF) && optional:
	case errors.As(err, &tooLarge):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
			WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *pkgerrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid":
		return "must be a uuid"
	case "url":
		return "must be a url"
	case "money":
		return "must be a positive amount with at most 2 decimals"
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

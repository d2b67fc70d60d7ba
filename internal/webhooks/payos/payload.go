package payoswebhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

// Layout identifies which of the gateway payload shapes was received.
type Layout string

const (
	// LayoutEnvelope is the signed `{code, desc, success, data{...}, signature}` shape.
	LayoutEnvelope Layout = "envelope"
	// LayoutFlat is the unsigned `{orderCode, amount, status}` shape.
	LayoutFlat Layout = "flat"
	// LayoutEmpty carries none of the recognised fields.
	LayoutEmpty Layout = "empty"
)

const gatewaySuccessCode = "00"

var flatSuccessStatuses = map[string]bool{
	"PAID":    true,
	"SUCCESS": true,
	"00":      true,
}

// Delivery is one parsed webhook call.
type Delivery struct {
	Layout       Layout
	Notification deposits.Notification
	// Data and Signature are only set for the envelope layout.
	Data      map[string]any
	Signature string
}

// Key identifies the delivery for idempotency: the order code plus the
// reported outcome.
func (d *Delivery) Key() string {
	if d == nil || d.Notification.Probe {
		return ""
	}
	status := "failed"
	if d.Notification.Successful {
		status = "success"
	}
	return fmt.Sprintf("%d:%s", d.Notification.OrderCode, status)
}

// Normalize resolves either payload layout into a canonical notification.
func Normalize(raw []byte) (*Delivery, error) {
	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
		}
	}

	if data, ok := body["data"].(map[string]any); ok {
		return normalizeEnvelope(body, data)
	}
	return normalizeFlat(body)
}

func normalizeEnvelope(body, data map[string]any) (*Delivery, error) {
	delivery := &Delivery{
		Layout:    LayoutEnvelope,
		Data:      data,
		Signature: stringField(body, "signature"),
	}
	if !hasAny(data, "orderCode", "amount", "code") {
		delivery.Notification.Probe = true
		return delivery, nil
	}

	code, amount, err := codeAndAmount(data)
	if err != nil {
		return nil, err
	}
	successful := stringField(data, "code") == gatewaySuccessCode
	if topCode := stringField(body, "code"); topCode != "" && topCode != gatewaySuccessCode {
		successful = false
	}
	if flag, ok := body["success"].(bool); ok && !flag {
		successful = false
	}

	delivery.Notification = deposits.Notification{
		OrderCode:  code,
		Amount:     amount,
		Successful: successful,
	}
	return delivery, nil
}

func normalizeFlat(body map[string]any) (*Delivery, error) {
	if !hasAny(body, "orderCode", "amount", "status") {
		return &Delivery{Layout: LayoutEmpty, Notification: deposits.Notification{Probe: true}}, nil
	}
	code, amount, err := codeAndAmount(body)
	if err != nil {
		return nil, err
	}
	status := strings.ToUpper(stringField(body, "status"))
	return &Delivery{
		Layout: LayoutFlat,
		Notification: deposits.Notification{
			OrderCode:  code,
			Amount:     amount,
			Successful: flatSuccessStatuses[status],
		},
	}, nil
}

func codeAndAmount(fields map[string]any) (int64, decimal.Decimal, error) {
	rawCode := stringField(fields, "orderCode")
	if rawCode == "" {
		return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order code missing")
	}
	code, err := strconv.ParseInt(rawCode, 10, 64)
	if err != nil || code <= 0 {
		return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order code must be a positive integer")
	}

	rawAmount := stringField(fields, "amount")
	if rawAmount == "" {
		return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount missing")
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return 0, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount is not numeric")
	}
	return code, amount, nil
}

func hasAny(fields map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

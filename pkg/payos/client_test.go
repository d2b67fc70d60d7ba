package payos

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

func TestClientCreatePaymentLinkRequest(t *testing.T) {
	const expectedURL = "http://payos.test/v2/payment-requests"
	respBody := `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.payos.vn/web/abc","paymentLinkId":"abc"}}`

	var capturedURL string
	var capturedHeaders http.Header
	var payload map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("cid", "key", "checksum", WithBaseURL("http://payos.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	link, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		OrderCode:   123,
		Amount:      decimal.NewFromInt(100000),
		Description: "Cakeverse wallet top-up for user",
		ReturnURL:   "https://cakeverse.test/return",
		CancelURL:   "https://cakeverse.test/cancel",
	})
	if err != nil {
		t.Fatalf("create payment link: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("x-client-id") != "cid" || capturedHeaders.Get("x-api-key") != "key" {
		t.Fatalf("credential headers missing: %v", capturedHeaders)
	}
	if link.CheckoutURL != "https://pay.payos.vn/web/abc" {
		t.Fatalf("unexpected checkout url %q", link.CheckoutURL)
	}

	description, _ := payload["description"].(string)
	if len(description) != maxDescriptionLength {
		t.Fatalf("expected description truncated to %d, got %q", maxDescriptionLength, description)
	}
	want := Sign("checksum", map[string]any{
		"amount":      100000,
		"cancelUrl":   "https://cakeverse.test/cancel",
		"description": description,
		"orderCode":   123,
		"returnUrl":   "https://cakeverse.test/return",
	})
	if payload["signature"] != want {
		t.Fatalf("unexpected signature %v", payload["signature"])
	}
}

func TestClientCreatePaymentLinkRejectedByGateway(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"code":"231","desc":"order code exists"}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("cid", "key", "checksum", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreatePaymentLink(context.Background(), PaymentLinkRequest{OrderCode: 1, Amount: decimal.NewFromInt(10)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientCreatePaymentLinkValidatesInput(t *testing.T) {
	client, err := NewClient("cid", "key", "checksum")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cases := []PaymentLinkRequest{
		{OrderCode: 0, Amount: decimal.NewFromInt(10)},
		{OrderCode: 1, Amount: decimal.Zero},
		{OrderCode: 1, Amount: decimal.RequireFromString("10.5")},
	}
	for _, tc := range cases {
		if _, err := client.CreatePaymentLink(context.Background(), tc); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "key", "sum"); err == nil {
		t.Fatalf("expected missing client id error")
	}
	if _, err := NewClient("cid", "", "sum"); err == nil {
		t.Fatalf("expected missing api key error")
	}
	if _, err := NewClient("cid", "key", " "); err == nil {
		t.Fatalf("expected missing checksum key error")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

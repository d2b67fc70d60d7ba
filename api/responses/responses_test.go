package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", got)
	}

	var body SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "bad input" {
		t.Fatalf("unexpected message %s", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorKeepsDomainMessages(t *testing.T) {
	codes := []pkgerrors.Code{
		pkgerrors.CodeInsufficient,
		pkgerrors.CodeAmountMismatch,
		pkgerrors.CodeTooEarly,
		pkgerrors.CodeStateConflict,
	}
	for _, code := range codes {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, pkgerrors.New(code, "specific reason"))

		var body ErrorEnvelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode error envelope: %v", err)
		}
		if body.Error.Code != string(code) || body.Error.Message != "specific reason" {
			t.Fatalf("%s: unexpected payload %+v", code, body.Error)
		}
		if w.Code != pkgerrors.MetadataFor(code).HTTPStatus {
			t.Fatalf("%s: unexpected status %d", code, w.Code)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: relation wallets does not exist"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message == "pq: relation wallets does not exist" {
		t.Fatalf("storage error text leaked")
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}

func TestWriteErrorLogsRejectionAtWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Output: buf})
	w := httptest.NewRecorder()

	WriteError(context.Background(), logg, w, pkgerrors.New(pkgerrors.CodeInsufficient, "balance 10.00 below 50.00"))

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v (%s)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["error_code"] != string(pkgerrors.CodeInsufficient) {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

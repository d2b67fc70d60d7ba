package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
)

func TestCanonicalSortsKeysAndBlanksNulls(t *testing.T) {
	got := canonical(map[string]any{
		"orderCode":          json.Number("123"),
		"amount":             float64(1000000),
		"description":        "top up",
		"counterAccountName": nil,
		"virtualAccountName": "null",
	})
	want := "amount=1000000&counterAccountName=&description=top up&orderCode=123&virtualAccountName="
	if got != want {
		t.Fatalf("canonical mismatch\nwant %q\ngot  %q", want, got)
	}
}

func TestSignMatchesManualHMAC(t *testing.T) {
	data := map[string]any{"orderCode": 7, "amount": 5000}
	mac := hmac.New(sha256.New, []byte("key"))
	mac.Write([]byte("amount=5000&orderCode=7"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign("key", data); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestVerify(t *testing.T) {
	data := map[string]any{"orderCode": json.Number("42"), "amount": json.Number("100000"), "code": "00"}
	sig := Sign("checksum", data)

	if !Verify("checksum", data, sig) {
		t.Fatalf("expected signature to verify")
	}
	if !Verify("checksum", data, strings.ToUpper(sig)) {
		t.Fatalf("expected hex comparison to ignore case")
	}
	if Verify("other", data, sig) {
		t.Fatalf("wrong key must not verify")
	}
	if Verify("checksum", data, "") {
		t.Fatalf("empty signature must not verify")
	}

	data["amount"] = json.Number("100001")
	if Verify("checksum", data, sig) {
		t.Fatalf("tampered data must not verify")
	}
}

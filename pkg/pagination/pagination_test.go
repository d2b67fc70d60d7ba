package pagination

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	token := EncodeCursor(in)
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token %q needs escaping in a query string", token)
	}
	out, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("unexpected cursor %+v", out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %+v (%v)", c, err)
	}
	bad := []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("no-separator")),
		base64.RawURLEncoding.EncodeToString([]byte("yesterday|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano) + "|cake")),
	}
	for _, token := range bad {
		if _, err := ParseCursor(token); err == nil {
			t.Fatalf("expected %q to be rejected", token)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 7: 7, MaxLimit + 5: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSplitKeysNextPageOnLastKeptRow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Cursor{
		{CreatedAt: base.Add(3 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(2 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(time.Minute), ID: uuid.New()},
	}
	key := func(c Cursor) Cursor { return c }

	page, next := Split(rows, 2, key)
	if len(page) != 2 || next == nil || next.ID != rows[1].ID {
		t.Fatalf("expected two rows keyed on the second, got %d %+v", len(page), next)
	}

	page, next = Split(rows[:2], 2, key)
	if len(page) != 2 || next != nil {
		t.Fatalf("expected final page without cursor")
	}
}

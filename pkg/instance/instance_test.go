package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("CAKEVERSE_INSTANCE_ID", "worker-7")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected web.1 got %q", got)
	}
}

func TestGetIDFallsBackToInstanceID(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("CAKEVERSE_INSTANCE_ID", "worker-7")
	if got := GetID(); got != "worker-7" {
		t.Fatalf("expected worker-7 got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("CAKEVERSE_INSTANCE_ID", "")
	if GetID() == "" {
		t.Fatal("expected a non-empty id")
	}
}

package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"cakeverse", "domain-events", "projects/cakeverse/topics/domain-events"},
		{"cakeverse", " domain-events ", "projects/cakeverse/topics/domain-events"},
		{"other", "projects/cakeverse/topics/domain-events", "projects/cakeverse/topics/domain-events"},
		{"", "domain-events", ""},
		{"cakeverse", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Errorf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.DomainPublisher() != nil {
		t.Fatalf("nil client returned a publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

package instance

import (
	"os"
	"strings"
)

// GetID names the running process in logs. Platform dyno names win over the
// explicit worker id, then the hostname.
func GetID() string {
	for _, key := range []string{"DYNO", "CAKEVERSE_INSTANCE_ID"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

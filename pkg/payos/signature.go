package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sign computes the gateway checksum: HMAC-SHA256 over the key-sorted
// "key=value" pairs joined by '&', hex encoded.
func Sign(checksumKey string, data map[string]any) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(canonical(data)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature against the checksum of data in constant time.
func Verify(checksumKey string, data map[string]any, signature string) bool {
	signature = strings.TrimSpace(signature)
	if checksumKey == "" || signature == "" {
		return false
	}
	expected := Sign(checksumKey, data)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func canonical(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(data[k]))
	}
	return strings.Join(parts, "&")
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		if value == "null" || value == "undefined" {
			return ""
		}
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "true"
		}
		return "false"
	case []any, map[string]any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return fmt.Sprint(value)
	}
}

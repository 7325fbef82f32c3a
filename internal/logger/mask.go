package logger

import "strings"

var sensitiveKeys = []string{
	"signature",
	"raw_message",
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
}

// MaskSignature masks a wallet signature, preserving the hex prefix and the
// last four characters so operators can still correlate log lines.
func MaskSignature(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "0x") {
		return "0x" + maskLast4(value[2:])
	}
	return maskLast4(value)
}

// MaskFields returns a deep-copied map with sensitive fields masked.
func MaskFields(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitiveKey(key) {
			out[key] = maskValue(value)
			continue
		}
		out[key] = maskFieldValue(value)
	}
	return out
}

func maskFieldValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskFields(typed)
	case []any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, maskFieldValue(entry))
		}
		return items
	default:
		return value
	}
}

func maskValue(value any) any {
	switch typed := value.(type) {
	case string:
		return maskLast4(typed)
	case []byte:
		return maskLast4(string(typed))
	default:
		return "****"
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func maskLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}

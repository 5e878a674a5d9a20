package masking

import "strings"

const maskToken = "****"

// Metadata keys whose values never reach the audit table in clear.
var sensitiveKeys = map[string]struct{}{
	"sign_string": {},
	"secret_key":  {},
	"phone":       {},
}

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskFields copies metadata, masking string values under sensitive keys at any depth.
func MaskFields(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, sensitive := sensitiveKeys[strings.ToLower(key)]; sensitive {
			if str, ok := value.(string); ok {
				out[key] = MaskSecret(str)
				continue
			}
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = MaskFields(nested)
			continue
		}
		out[key] = value
	}
	return out
}

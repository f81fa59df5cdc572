package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
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

// MaskEmail keeps the first letter of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskSecret(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskPhone keeps the last two digits.
func MaskPhone(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= 2 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-2:]
}

var contactKeys = map[string]func(string) string{
	"email":          MaskEmail,
	"customer_email": MaskEmail,
	"phone":          MaskPhone,
	"customer_phone": MaskPhone,
	"signature":      MaskSecret,
	"password":       func(string) string { return maskToken },
}

// MaskContact returns a copy of input with customer contact data redacted.
// Keys not known to hold personal data pass through unchanged.
func MaskContact(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(strings.ToLower(trimmedKey), value)
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if fn, ok := contactKeys[key]; ok {
			return fn(cast)
		}
		return cast
	case map[string]any:
		return MaskContact(cast)
	default:
		return value
	}
}

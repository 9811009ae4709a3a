package security

import (
	"regexp"
	"strings"
)

// Vietnamese mobile numbers: ten digits, leading zero.
var phonePattern = regexp.MustCompile(`^0\d{9}$`)

// NormalizePhone strips formatting and converts the +84 country prefix
// to the domestic leading zero.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if strings.HasPrefix(normalized, "84") && len(normalized) == 11 {
		normalized = "0" + normalized[2:]
	}
	return normalized
}

// ValidPhone reports whether a normalized phone number is acceptable.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// MaskEmail hides the local part of an email beyond its first two
// characters. Malformed addresses mask to empty.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	local := parts[0]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + "@" + parts[1]
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + "@" + parts[1]
}

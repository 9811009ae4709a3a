package security

import (
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new TOTP key for an admin account.
// The returned key carries both the secret and the provisioning URL.
func GenerateTOTPSecret(username string) (*otp.Key, error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      "wardrate",
		AccountName: username,
	})
	if errGenerate != nil {
		return nil, fmt.Errorf("security: generate totp secret: %w", errGenerate)
	}
	return key, nil
}

// ValidateTOTP checks a one-time code against the stored secret.
func ValidateTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

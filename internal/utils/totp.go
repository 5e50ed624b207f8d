package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPConfig holds configuration for authenticator-app MFA
type TOTPConfig struct {
	Issuer     string
	Period     uint
	Digits     otp.Digits
	Algorithm  otp.Algorithm
	SecretSize uint
}

// DefaultTOTPConfig returns the default TOTP configuration
func DefaultTOTPConfig() TOTPConfig {
	return TOTPConfig{
		Issuer:     "SecureControl",
		Period:     30,
		Digits:     otp.DigitsSix,
		Algorithm:  otp.AlgorithmSHA1,
		SecretSize: 20,
	}
}

// TOTPKey is a generated TOTP enrollment
type TOTPKey struct {
	Secret string
	URL    string
}

// GenerateTOTPKey generates a new TOTP key for authenticator enrollment
func GenerateTOTPKey(config TOTPConfig, accountName string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.Issuer,
		AccountName: accountName,
		Period:      config.Period,
		Digits:      config.Digits,
		Algorithm:   config.Algorithm,
		SecretSize:  config.SecretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return &TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// ValidateTOTPCode validates a TOTP code against a secret
func ValidateTOTPCode(secret, code string, config TOTPConfig) bool {
	code = strings.ReplaceAll(code, " ", "")

	valid, err := totp.ValidateCustom(
		code,
		secret,
		time.Now().UTC(),
		totp.ValidateOpts{
			Period:    config.Period,
			Digits:    config.Digits,
			Algorithm: config.Algorithm,
		},
	)
	if err != nil {
		return false
	}
	return valid
}

package authkit

import "time"

// ServerConfig configures token issuance and account recovery.
type ServerConfig struct {
	GoogleWebClientID   string
	AppJWTSigningKey    []byte
	AppJWTIssuer        string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RotateRefreshTokens bool
	ResetTTL            time.Duration
	ResetURLBase        string
	MinPasswordLength   int
}

// DefaultResetTTL bounds how long a password reset link stays usable.
const DefaultResetTTL = 24 * time.Hour

// DefaultMinPasswordLength is applied when MinPasswordLength is unset.
const DefaultMinPasswordLength = 8

func (configuration ServerConfig) minPasswordLength() int {
	if configuration.MinPasswordLength <= 0 {
		return DefaultMinPasswordLength
	}
	return configuration.MinPasswordLength
}

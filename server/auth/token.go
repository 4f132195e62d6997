// Package auth provides bearer access-token handling for the HTTP API.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AccessTokenPrefix prefixes every issued access token, so leaked tokens are
// recognizable in scanners and logs.
const AccessTokenPrefix = "cfind_pat_"

// GenerateAccessToken creates a new random access token. The raw token is
// shown to the user exactly once; only its hash is stored.
func GenerateAccessToken() string {
	buf := make([]byte, 32)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	return AccessTokenPrefix + hex.EncodeToString(buf)
}

// HashAccessToken returns the hex SHA-256 digest of a token, the at-rest
// representation.
func HashAccessToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// ExtractBearerToken pulls the bearer token out of an Authorization header
// value. Returns an empty string when the header is absent or malformed.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

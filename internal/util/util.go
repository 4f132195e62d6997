package util

import (
	"net/mail"

	"github.com/google/uuid"
)

// GenUUID generates a new UUID string.
func GenUUID() string {
	return uuid.NewString()
}

// ValidateEmail validates the email address format.
func ValidateEmail(email string) bool {
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return true
}

package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinAdminPasswordLen is the shortest admin password HashAdminPassword
// accepts.
const MinAdminPasswordLen = 8

// ErrWeakPassword is returned for admin passwords that are too short.
var ErrWeakPassword = errors.New("admin password too short")

// HashAdminPassword produces the value for ADMIN_PASSWORD_HASH.  A cost
// outside bcrypt's range falls back to bcrypt.DefaultCost.
func HashAdminPassword(plain string, cost int) (string, error) {
	if len(plain) < MinAdminPasswordLen {
		return "", ErrWeakPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAdminPassword checks plain against the configured hash.  An empty
// hash means admin login is disabled and never matches.
func VerifyAdminPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

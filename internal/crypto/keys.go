package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// DeriveKey expands the master secret into an independent signing key for
// the given label. Tokens signed under one label can never verify under
// another.
func DeriveKey(secret, label string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

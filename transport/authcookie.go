package transport

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveAuthCookie derives a per-friend hidden-service authorization cookie
// from self's long-term hidden-service secret, so the transport supervisor
// can gather per-friend cookies without storing one independently
// generated value per friend.
func DeriveAuthCookie(hiddenServiceSecret []byte, friendID string) ([]byte, error) {
	r := hkdf.New(sha256.New, hiddenServiceSecret, []byte(friendID), []byte("hidden-service-auth-cookie"))
	cookie := make([]byte, 32)
	if _, err := io.ReadFull(r, cookie); err != nil {
		return nil, err
	}
	return cookie, nil
}

// Package crypt provides the symmetric cipher profiles applied to message text
// before it is framed into a carrier.
//
// Two profiles exist:
//   - EAX (default): SHA-256 of the key feeds AES-256-EAX; the embedded text is
//     base64(nonce ‖ tag ‖ ciphertext) and the tag is verified on decrypt.
//   - ECB (legacy): the key bytes are the AES key; PKCS#7 padded AES-ECB,
//     base64 encoded, with no authentication.
package crypt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey is returned when a raw key is not 16, 24 or 32 bytes long.
	ErrInvalidKey = errors.New("invalid key size")
	// ErrDecrypt covers padding, authentication and encoding failures.
	ErrDecrypt = errors.New("decryption failed")
)

// Profile encrypts message text into an embeddable ASCII string and back.
type Profile interface {
	Name() string
	Encrypt(key, text string) (string, error)
	Decrypt(key, text string) (string, error)
}

// Lookup resolves a profile by name.
func Lookup(name string) (Profile, error) {
	switch strings.ToLower(name) {
	case "eax", "authenticated", "":
		return EAX{}, nil
	case "ecb", "legacy", "raw":
		return ECB{}, nil
	default:
		return nil, fmt.Errorf("unknown cipher profile %q (use eax or ecb)", name)
	}
}

// decodeBase64 restores stripped '=' padding before decoding.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return b, nil
}

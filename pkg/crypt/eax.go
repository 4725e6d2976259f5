package crypt

// AES-EAX as described by Bellare, Rogaway and Wagner, built from CTR and OMAC.
// Output is interoperable with PyCryptodome's MODE_EAX at the default sizes.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// Sizes of the embedded EAX envelope.
const (
	NonceSize = 16
	TagSize   = 16
)

// EAX is the default authenticated profile.
type EAX struct{}

func (EAX) Name() string { return "eax" }

func (EAX) Encrypt(key, text string) (string, error) {
	block, err := derivedKeyCipher(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct, tag := eaxSeal(block, nonce, []byte(text), nil)

	out := make([]byte, 0, NonceSize+TagSize+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (EAX) Decrypt(key, text string) (string, error) {
	block, err := derivedKeyCipher(key)
	if err != nil {
		return "", err
	}
	data, err := decodeBase64(text)
	if err != nil {
		return "", err
	}
	if len(data) < NonceSize+TagSize {
		return "", fmt.Errorf("%w: envelope is %d bytes", ErrDecrypt, len(data))
	}
	nonce, tag, ct := data[:NonceSize], data[NonceSize:NonceSize+TagSize], data[NonceSize+TagSize:]
	plain, err := eaxOpen(block, nonce, ct, tag, nil)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not UTF-8", ErrDecrypt)
	}
	return string(plain), nil
}

func derivedKeyCipher(key string) (cipher.Block, error) {
	sum := sha256.Sum256([]byte(key))
	return aes.NewCipher(sum[:])
}

func eaxSeal(block cipher.Block, nonce, plaintext, header []byte) (ct, tag []byte) {
	mac := newCMAC(block)
	n := mac.omac(0, nonce)
	h := mac.omac(1, header)

	ct = make([]byte, len(plaintext))
	cipher.NewCTR(block, n[:]).XORKeyStream(ct, plaintext)

	c := mac.omac(2, ct)
	tag = make([]byte, TagSize)
	for i := range tag {
		tag[i] = n[i] ^ h[i] ^ c[i]
	}
	return ct, tag
}

func eaxOpen(block cipher.Block, nonce, ct, tag, header []byte) ([]byte, error) {
	mac := newCMAC(block)
	n := mac.omac(0, nonce)
	h := mac.omac(1, header)
	c := mac.omac(2, ct)

	want := make([]byte, TagSize)
	for i := range want {
		want[i] = n[i] ^ h[i] ^ c[i]
	}
	if subtle.ConstantTimeCompare(want, tag) != 1 {
		return nil, fmt.Errorf("%w: authentication tag mismatch", ErrDecrypt)
	}

	plain := make([]byte, len(ct))
	cipher.NewCTR(block, n[:]).XORKeyStream(plain, ct)
	return plain, nil
}

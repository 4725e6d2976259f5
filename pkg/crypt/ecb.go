package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// ECB is the legacy raw-key profile. It has no integrity protection beyond
// PKCS#7 padding checks.
type ECB struct{}

func (ECB) Name() string { return "ecb" }

func (ECB) Encrypt(key, text string) (string, error) {
	block, err := rawKeyCipher(key)
	if err != nil {
		return "", err
	}
	src := pkcs7Pad([]byte(text), aes.BlockSize)
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += aes.BlockSize {
		block.Encrypt(dst[i:i+aes.BlockSize], src[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(dst), nil
}

func (ECB) Decrypt(key, text string) (string, error) {
	block, err := rawKeyCipher(key)
	if err != nil {
		return "", err
	}
	src, err := decodeBase64(text)
	if err != nil {
		return "", err
	}
	if len(src) == 0 || len(src)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrDecrypt, len(src))
	}
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += aes.BlockSize {
		block.Decrypt(dst[i:i+aes.BlockSize], src[i:i+aes.BlockSize])
	}
	plain, err := pkcs7Unpad(dst, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not UTF-8", ErrDecrypt)
	}
	return string(plain), nil
}

func rawKeyCipher(key string) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bytes (want 16, 24 or 32)", ErrInvalidKey, len(key))
	}
	return aes.NewCipher([]byte(key))
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: bad padded length", ErrDecrypt)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}

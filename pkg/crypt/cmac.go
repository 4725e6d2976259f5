package crypt

import (
	"crypto/aes"
	"crypto/cipher"
)

// cmac is OMAC1 as specified in RFC 4493.
type cmac struct {
	block  cipher.Block
	k1, k2 [aes.BlockSize]byte
}

func newCMAC(b cipher.Block) *cmac {
	var l [aes.BlockSize]byte
	b.Encrypt(l[:], l[:])
	m := &cmac{block: b}
	m.k1 = dbl(l)
	m.k2 = dbl(m.k1)
	return m
}

// dbl multiplies by x in GF(2^128).
func dbl(in [aes.BlockSize]byte) [aes.BlockSize]byte {
	var out [aes.BlockSize]byte
	for i := 0; i < aes.BlockSize-1; i++ {
		out[i] = in[i]<<1 | in[i+1]>>7
	}
	out[aes.BlockSize-1] = in[aes.BlockSize-1] << 1
	out[aes.BlockSize-1] ^= 0x87 & -(in[0] >> 7)
	return out
}

func (m *cmac) sum(msg []byte) [aes.BlockSize]byte {
	var x [aes.BlockSize]byte
	n := (len(msg) + aes.BlockSize - 1) / aes.BlockSize
	if n == 0 {
		n = 1
	}
	for i := 0; i < n-1; i++ {
		xorInto(x[:], msg[i*aes.BlockSize:(i+1)*aes.BlockSize])
		m.block.Encrypt(x[:], x[:])
	}

	var last [aes.BlockSize]byte
	rest := msg[(n-1)*aes.BlockSize:]
	copy(last[:], rest)
	if len(rest) == aes.BlockSize {
		xorInto(last[:], m.k1[:])
	} else {
		last[len(rest)] = 0x80
		xorInto(last[:], m.k2[:])
	}
	xorInto(x[:], last[:])
	m.block.Encrypt(x[:], x[:])
	return x
}

// omac tweaks the MAC with a one-block prefix holding t.
func (m *cmac) omac(t byte, msg []byte) [aes.BlockSize]byte {
	buf := make([]byte, aes.BlockSize, aes.BlockSize+len(msg))
	buf[aes.BlockSize-1] = t
	return m.sum(append(buf, msg...))
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

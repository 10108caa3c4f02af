package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrMalformedPayload is returned when a blob cannot be split into exactly
// two non-empty hex segments.
var ErrMalformedPayload = errors.New("malformed encrypted payload")

// ErrDecryptionFailed is returned when a well-formed blob does not decrypt
// under the configured key.
var ErrDecryptionFailed = errors.New("payload decryption failed")

// KeySize is the required secret length in bytes (AES-256).
const KeySize = 32

const ivSize = aes.BlockSize

// Box defines a public type used by the lockbox engine APIs.
//
// Box instances are intended to be configured during initialization and then
// treated as immutable; a Box is safe for concurrent use.
type Box struct {
	key []byte
}

// New describes the new operation and its observable behavior.
//
// New may return an error when the secret is not exactly [KeySize] bytes.
func New(secret []byte) (*Box, error) {
	if len(secret) != KeySize {
		return nil, errors.New("cipher secret must be 32 bytes")
	}
	key := make([]byte, KeySize)
	copy(key, secret)
	return &Box{key: key}, nil
}

// Encrypt seals plaintext into the "ivHex:ciphertextHex" blob format using a
// fresh random IV. Encrypt has no side effects beyond the returned blob.
func (b *Box) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens a blob produced by Encrypt. Shape failures return
// [ErrMalformedPayload]; length and padding failures return
// [ErrDecryptionFailed]. Decrypt never panics on hostile input.
func (b *Box) Decrypt(blob string) ([]byte, error) {
	segments := strings.Split(blob, ":")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return nil, ErrMalformedPayload
	}

	iv, err := hex.DecodeString(segments[0])
	if err != nil {
		return nil, ErrMalformedPayload
	}
	ct, err := hex.DecodeString(segments[1])
	if err != nil {
		return nil, ErrMalformedPayload
	}
	if len(iv) != ivSize {
		return nil, ErrMalformedPayload
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(ct))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	return unpad(plain)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecryptionFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, ErrDecryptionFailed
	}
	for _, c := range data[len(data)-n:] {
		if int(c) != n {
			return nil, ErrDecryptionFailed
		}
	}
	return data[:len(data)-n], nil
}

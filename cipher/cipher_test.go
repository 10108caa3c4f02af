package cipher

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
)

func testBox(t *testing.T) *Box {
	t.Helper()

	secret := make([]byte, KeySize)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("secret generation failed: %v", err)
	}
	box, err := New(secret)
	if err != nil {
		t.Fatalf("box init failed: %v", err)
	}
	return box
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box := testBox(t)

	plain := []byte(`{"user_id":"u1","ip":"10.0.0.1","ua":"Agent/1.0"}`)
	blob, err := box.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	got, err := box.Decrypt(blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plain)
	}
}

func TestEncryptDrawsFreshIV(t *testing.T) {
	box := testBox(t)

	first, err := box.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := box.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if first == second {
		t.Fatal("two encryptions of the same plaintext produced identical blobs")
	}
	if strings.SplitN(first, ":", 2)[0] == strings.SplitN(second, ":", 2)[0] {
		t.Fatal("IV was reused across Encrypt calls")
	}
}

func TestDecryptMalformedBlobShapes(t *testing.T) {
	box := testBox(t)

	for _, blob := range []string{
		"",
		"nothing-here",
		"deadbeef",
		":deadbeef",
		"deadbeef:",
		"a:b:c",
		"zzzz:deadbeef",
		"deadbeef:zzzz",
	} {
		if _, err := box.Decrypt(blob); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("blob %q: expected ErrMalformedPayload, got %v", blob, err)
		}
	}
}

func TestDecryptBadCiphertextLength(t *testing.T) {
	box := testBox(t)

	// Valid hex, valid IV size, but ciphertext is not a block multiple.
	blob := strings.Repeat("ab", 16) + ":" + strings.Repeat("ab", 7)
	if _, err := box.Decrypt(blob); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptWrongKeyFailsClosed(t *testing.T) {
	box := testBox(t)
	other := testBox(t)

	blob, err := box.Encrypt([]byte("bound to the first key"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	// CBC has no authentication: a wrong key either trips the padding check or
	// yields garbage. Either way it must not panic and must not return the
	// original plaintext.
	got, err := other.Decrypt(blob)
	if err == nil && bytes.Equal(got, []byte("bound to the first key")) {
		t.Fatal("decrypt under a different key recovered the plaintext")
	}
}

func TestNewRejectsBadKeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := New(make([]byte, n)); err == nil {
			t.Fatalf("expected error for %d-byte secret", n)
		}
	}
}

package cipher

import "testing"

// FuzzDecrypt exercises the blob parser with arbitrary inputs.
// Goal: no panics, graceful errors for malformed input.
func FuzzDecrypt(f *testing.F) {
	secret := make([]byte, KeySize)
	for i := range secret {
		secret[i] = byte(i)
	}
	box, err := New(secret)
	if err != nil {
		f.Fatalf("box init failed: %v", err)
	}

	if blob, err := box.Encrypt([]byte("seed payload")); err == nil {
		f.Add(blob)
		if len(blob) > 10 {
			f.Add(blob[:10])
		}
	}
	f.Add("")
	f.Add(":")
	f.Add("a:b")
	f.Add("deadbeef:deadbeef")

	f.Fuzz(func(t *testing.T, blob string) {
		// Must not panic. Errors are expected for malformed input.
		_, _ = box.Decrypt(blob)
	})
}

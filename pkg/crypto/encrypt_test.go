package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	salt := bytes.Repeat([]byte{0x42}, SaltLength)
	key, err := DeriveKey("test-passphrase", salt)
	if err != nil {
		t.Fatalf("failed to derive key: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api secret", "mHgfR2kV8qLXw1nZ5tYc3dBj"},
		{"empty string", ""},
		{"unicode", "ключ доступа"},
		{"long value", strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Encrypt(tt.plaintext, key)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}
			if sealed == tt.plaintext && tt.plaintext != "" {
				t.Error("ciphertext equals plaintext")
			}

			plain, err := Decrypt(sealed, key)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if plain != tt.plaintext {
				t.Errorf("expected %q, got %q", tt.plaintext, plain)
			}
		})
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	key := testKey(t)

	first, err := Encrypt("secret", key)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := Encrypt("secret", key)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	// Random nonce: same plaintext never repeats on the wire
	if first == second {
		t.Error("expected unique ciphertexts for repeated plaintext")
	}
}

func TestDecryptErrors(t *testing.T) {
	key := testKey(t)

	if _, err := Encrypt("secret", []byte("short")); err != ErrInvalidKeyLength {
		t.Errorf("expected ErrInvalidKeyLength, got %v", err)
	}
	if _, err := Decrypt("not-base64!!!", key); err != ErrInvalidCiphertext {
		t.Errorf("expected ErrInvalidCiphertext, got %v", err)
	}
	if _, err := Decrypt("dG9vc2hvcnQ=", key); err == nil {
		t.Error("expected error for truncated ciphertext")
	}

	sealed, err := Encrypt("secret", key)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	otherKey := bytes.Repeat([]byte{0x01}, DerivedKeyLength)
	if _, err := Decrypt(sealed, otherKey); err != ErrDecryptionFailed {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSecretRoundTrip(t *testing.T) {
	sealed, err := EncryptSecret("venue-api-secret", "config-passphrase")
	if err != nil {
		t.Fatalf("encrypt secret failed: %v", err)
	}

	plain, err := DecryptSecret(sealed, "config-passphrase")
	if err != nil {
		t.Fatalf("decrypt secret failed: %v", err)
	}
	if plain != "venue-api-secret" {
		t.Errorf("expected venue-api-secret, got %q", plain)
	}

	if _, err := DecryptSecret(sealed, "wrong-passphrase"); err != ErrDecryptionFailed {
		t.Errorf("expected ErrDecryptionFailed with wrong passphrase, got %v", err)
	}
}

func TestSecretSaltEmbedded(t *testing.T) {
	first, err := EncryptSecret("secret", "passphrase")
	if err != nil {
		t.Fatalf("encrypt secret failed: %v", err)
	}
	second, err := EncryptSecret("secret", "passphrase")
	if err != nil {
		t.Fatalf("encrypt secret failed: %v", err)
	}
	// Fresh salt per secret: outputs differ and each carries its own salt
	if first == second {
		t.Error("expected unique sealed secrets")
	}
}

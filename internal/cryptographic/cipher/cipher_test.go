package cipher

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/model"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, model.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return key
}

func TestMessageRoundTrip(t *testing.T) {
	key := testKey(t)

	envelope, err := EncryptMessage("hello", key)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}
	if len(envelope) != Overhead+len("hello") {
		t.Errorf("envelope length = %d, want %d", len(envelope), Overhead+len("hello"))
	}

	got, err := DecryptMessage(envelope, key)
	if err != nil {
		t.Fatalf("DecryptMessage() error = %v", err)
	}
	if got != "hello" {
		t.Fatalf("DecryptMessage() = %q, want %q", got, "hello")
	}
}

func TestMessageNonceUniqueness(t *testing.T) {
	key := testKey(t)

	e1, err := EncryptMessage("hello", key)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}
	e2, err := EncryptMessage("hello", key)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}
	if bytes.Equal(e1, e2) {
		t.Fatal("two encryptions of the same plaintext produced identical envelopes")
	}
	if bytes.Equal(e1[:model.NonceSize], e2[:model.NonceSize]) {
		t.Fatal("nonce reused across envelopes")
	}
}

func TestMessageTamperDetection(t *testing.T) {
	key := testKey(t)

	envelope, err := EncryptMessage("hello", key)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}

	// every single-byte flip must fail, never return altered plaintext
	for i := range envelope {
		tampered := append([]byte(nil), envelope...)
		tampered[i] ^= 0x01
		if _, err := DecryptMessage(tampered, key); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
			t.Fatalf("byte %d: DecryptMessage(tampered) error = %v, want ErrDecryptionFailed", i, err)
		}
	}
}

func TestMessageTruncation(t *testing.T) {
	key := testKey(t)

	envelope, err := EncryptMessage("hello", key)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}

	for _, n := range []int{0, 1, model.NonceSize, len(envelope) - 1} {
		if _, err := DecryptMessage(envelope[:n], key); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
			t.Fatalf("len %d: DecryptMessage(truncated) error = %v, want ErrDecryptionFailed", n, err)
		}
	}
}

func TestMessageWrongKey(t *testing.T) {
	envelope, err := EncryptMessage("hello", testKey(t))
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}
	if _, err := DecryptMessage(envelope, testKey(t)); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
		t.Fatalf("DecryptMessage(wrong key) error = %v, want ErrDecryptionFailed", err)
	}
}

func TestMessageInvalidArguments(t *testing.T) {
	if _, err := EncryptMessage("", testKey(t)); !errors.Is(err, cryptographic.ErrInvalidInput) {
		t.Errorf("EncryptMessage(empty) error = %v, want ErrInvalidInput", err)
	}
	if _, err := EncryptMessage("hello", []byte("short")); !errors.Is(err, cryptographic.ErrInvalidInput) {
		t.Errorf("EncryptMessage(bad key) error = %v, want ErrInvalidInput", err)
	}
}

func TestMediaRoundTrip(t *testing.T) {
	key := testKey(t)

	// binary payload with a fake media header, larger than one block
	buf := make([]byte, 64*1024)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	copy(buf, []byte{0xFF, 0xD8, 0xFF, 0xE0})

	envelope, err := EncryptMedia(buf, key)
	if err != nil {
		t.Fatalf("EncryptMedia() error = %v", err)
	}
	if len(envelope) != Overhead+len(buf) {
		t.Errorf("envelope length = %d, want %d", len(envelope), Overhead+len(buf))
	}

	got, err := DecryptMedia(envelope, key)
	if err != nil {
		t.Fatalf("DecryptMedia() error = %v", err)
	}
	if !bytes.Equal(got, buf) {
		t.Fatal("decrypted media differs from original")
	}
}

func TestMediaTamperDetection(t *testing.T) {
	key := testKey(t)

	envelope, err := EncryptMedia([]byte("%PDF-1.7 not really a pdf"), key)
	if err != nil {
		t.Fatalf("EncryptMedia() error = %v", err)
	}

	tampered := append([]byte(nil), envelope...)
	tampered[len(tampered)/2] ^= 0x80
	if _, err := DecryptMedia(tampered, key); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
		t.Fatalf("DecryptMedia(tampered) error = %v, want ErrDecryptionFailed", err)
	}
}

package secrets_test

import (
	"testing"

	"github.com/abekov/accountd/internal/secrets"
)

func TestHash_RoundTrip(t *testing.T) {
	h := secrets.NewHasher(4) // min cost, keeps the test fast

	digest, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digest == "hunter2" {
		t.Fatal("digest equals plaintext")
	}
	if !h.Verify("hunter2", digest) {
		t.Error("correct plaintext did not verify")
	}
}

func TestVerify_WrongPlaintext(t *testing.T) {
	h := secrets.NewHasher(4)

	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Verify("battery staple", digest) {
		t.Error("wrong plaintext verified")
	}
}

func TestVerify_MalformedDigest_ReturnsFalse(t *testing.T) {
	h := secrets.NewHasher(4)

	for _, digest := range []string{"", "not-a-bcrypt-digest", "$2a$garbage"} {
		if h.Verify("anything", digest) {
			t.Errorf("malformed digest %q verified", digest)
		}
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := secrets.NewHasher(4)

	a, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same input are identical; salt missing")
	}
}

func TestNewHasher_OutOfRangeCost_FallsBackToDefault(t *testing.T) {
	h := secrets.NewHasher(99)

	digest, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Verify("pw", digest) {
		t.Error("digest from fallback cost did not verify")
	}
}

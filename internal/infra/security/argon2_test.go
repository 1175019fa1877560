package security

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2Hasher {
	t.Helper()

	// Shrunk parameters keep the test fast; the encoding logic is identical.
	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestHashAndVerifySuccess(t *testing.T) {
	hasher := testHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant {
		t.Fatalf("unexpected variant: %s", parts[0])
	}
	if parts[1] != argon2Version {
		t.Fatalf("unexpected version: %s", parts[1])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}
}

func TestVerifyIncorrectPassword(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyInvalidFormat(t *testing.T) {
	hasher := testHasher(t)

	ok, err := hasher.Verify("password", "invalid-format")
	if err == nil {
		t.Fatal("Verify expected to return error for invalid format")
	}
	if ok {
		t.Fatal("Verify must report false for malformed hashes")
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	hasher := testHasher(t)

	ok, err := hasher.Verify("", "")
	if err != nil {
		t.Fatalf("Verify returned error for empty inputs: %v", err)
	}
	if ok {
		t.Fatal("Verify should return false for empty inputs")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	// A hash minted with one parameter set must verify through a hasher
	// configured with a different one.
	minting := testHasher(t)
	encoded, err := minting.Hash("change-me")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	verifying, err := NewArgon2Hasher(Argon2Config{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	ok, err := verifying.Verify("change-me", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify did not honor parameters embedded in the hash")
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	_, err := NewArgon2Hasher(Argon2Config{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err == nil {
		t.Fatal("expected error for sub-minimum memory")
	}
}

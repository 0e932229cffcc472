package security

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher, err := NewPasswordHasher(DefaultArgon2Params())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	encoded, err := hasher.Hash("Str0ng!Passphrase")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := hasher.Verify("Str0ng!Passphrase", encoded)
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify against its own hash")
	}

	ok, err = hasher.Verify("Wr0ng!Passphrase", encoded)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestPasswordHasherProducesUniqueSalts(t *testing.T) {
	hasher, err := NewPasswordHasher(DefaultArgon2Params())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	first, err := hasher.Hash("Str0ng!Passphrase")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := hasher.Hash("Str0ng!Passphrase")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher, err := NewPasswordHasher(DefaultArgon2Params())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	cases := []string{
		"argon2id$v=19$m=65536,t=3,p=4$short",
		"bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"argon2id$v=19$m=abc,t=3,p=4$c2FsdA$aGFzaA",
	}

	for _, encoded := range cases {
		if _, err := hasher.Verify("password", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}

	ok, err := hasher.Verify("", "anything")
	if err != nil || ok {
		t.Fatalf("expected empty password to fail cleanly, got ok=%v err=%v", ok, err)
	}
}

func TestNewPasswordHasherValidatesParams(t *testing.T) {
	_, err := NewPasswordHasher(Argon2Params{Memory: 1024, Iterations: 3, Parallelism: 4, SaltLength: 16, KeyLength: 32})
	if !errors.Is(err, errInvalidConfig) {
		t.Fatalf("expected invalid configuration error, got %v", err)
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("hash", "hash") {
		t.Fatal("expected equal hashes to compare equal")
	}
	if ConstantTimeEqual("hash", "hash2") {
		t.Fatal("expected differing hashes to compare unequal")
	}
}

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassphraseProducesPHCFormat(t *testing.T) {
	hash, err := HashPassphrase("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("HashPassphrase() = %q, want $argon2id$ prefix", hash)
	}
}

func TestHashPassphraseUsesRandomSalt(t *testing.T) {
	raw := "correct horse battery staple"
	h1, err := HashPassphrase(raw)
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	h2, err := HashPassphrase(raw)
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	if h1 == h2 {
		t.Error("HashPassphrase() produced identical hashes for same input")
	}
}

func TestVerifyPassphraseAcceptsCorrectPassphrase(t *testing.T) {
	raw := "destroy everything"
	hash, err := HashPassphrase(raw)
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	if err := VerifyPassphrase(raw, hash); err != nil {
		t.Errorf("VerifyPassphrase() error: %v, want nil", err)
	}
}

func TestVerifyPassphraseRejectsWrongPassphrase(t *testing.T) {
	hash, err := HashPassphrase("destroy everything")
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	if err := VerifyPassphrase("wrong passphrase", hash); !errors.Is(err, ErrInvalidPassphrase) {
		t.Errorf("VerifyPassphrase() error = %v, want ErrInvalidPassphrase", err)
	}
}

func TestVerifyPassphraseRejectsMalformedHash(t *testing.T) {
	if err := VerifyPassphrase("anything", "not-a-real-hash"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Errorf("VerifyPassphrase() error = %v, want ErrInvalidPassphrase", err)
	}
}

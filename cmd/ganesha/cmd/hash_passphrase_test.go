package cmd

import (
	"strings"
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/domain/auth"
)

func TestHashPassphraseCmd_Registered(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "hash-passphrase" {
			return
		}
	}
	t.Error("hash-passphrase command not registered with rootCmd")
}

func TestHashPassphraseCmd_ProducesVerifiableHash(t *testing.T) {
	hash, err := auth.HashPassphrase("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassphrase() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want $argon2id$ prefix", hash)
	}
	if err := auth.VerifyPassphrase("correct horse battery staple", hash); err != nil {
		t.Errorf("VerifyPassphrase() error: %v", err)
	}
}

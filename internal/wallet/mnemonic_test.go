package wallet

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	tests := []struct {
		bits  int
		words int
	}{
		{Words12, 12},
		{Words24, 24},
	}
	for _, tt := range tests {
		phrase, err := GenerateMnemonic(tt.bits)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", tt.bits, err)
		}
		if n := len(strings.Fields(phrase)); n != tt.words {
			t.Errorf("GenerateMnemonic(%d) words = %d, want %d", tt.bits, n, tt.words)
		}
		if _, err := SeedFromMnemonic(phrase, ""); err != nil {
			t.Errorf("generated phrase does not derive a seed: %v", err)
		}
	}
}

func TestGenerateMnemonic_BadSize(t *testing.T) {
	if _, err := GenerateMnemonic(192); err == nil {
		t.Error("expected error for unsupported entropy size")
	}
}

func TestSeedFromMnemonic_Vector(t *testing.T) {
	// BIP-39 reference vector with passphrase "TREZOR".
	seed, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	want := "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04"
	if got := hex.EncodeToString(seed); got != want {
		t.Errorf("seed = %s, want %s", got, want)
	}
}

func TestSeedFromMnemonic_Normalizes(t *testing.T) {
	a, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	messy := "  ABANDON abandon\tabandon abandon abandon abandon abandon abandon abandon abandon abandon   About "
	b, err := SeedFromMnemonic(messy, "")
	if err != nil {
		t.Fatalf("messy phrase rejected: %v", err)
	}
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Error("normalized phrase derived a different seed")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	tests := []string{
		"",
		"abandon abandon abandon",
		strings.Repeat("abandon ", 12),
		"notaword abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	}
	for _, phrase := range tests {
		if _, err := SeedFromMnemonic(phrase, ""); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("SeedFromMnemonic(%q) = %v, want ErrInvalidMnemonic", phrase, err)
		}
	}
}

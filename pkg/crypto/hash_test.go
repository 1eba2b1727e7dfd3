package crypto

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("klingpay"))
	b := Hash([]byte("klingpay"))
	if a != b {
		t.Error("same input should hash identically")
	}
	if a == Hash([]byte("klingpay!")) {
		t.Error("different input should hash differently")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub := key.PublicKey()
	h := Hash(pub)
	addr := AddressFromPubKey(pub)
	for i := range addr {
		if addr[i] != h[i] {
			t.Fatalf("address byte %d = %x, want %x", i, addr[i], h[i])
		}
	}
	if key.Address() != addr {
		t.Error("PrivateKey.Address should match AddressFromPubKey")
	}
}

package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

func testAccounts(t *testing.T, master *HDKey, n int) []Account {
	t.Helper()
	out := make([]Account, n)
	for i := range out {
		a, err := DeriveAccount(master, "", ChainExternal, uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		out[i] = a
	}
	return out
}

func TestKeyring_SignsWithMinimalSet(t *testing.T) {
	master := testMaster(t)
	accounts := testAccounts(t, master, 3)
	kr, err := KeyringFromMaster(master, accounts)
	if err != nil {
		t.Fatalf("KeyringFromMaster() error: %v", err)
	}

	body := tx.NewBuilder().
		AddInput(outpoint(1, 0), accounts[0].Address).
		AddInput(outpoint(2, 0), accounts[2].Address).
		AddInput(outpoint(3, 0), accounts[0].Address).
		AddOutput(100, accounts[1].Address).
		Build()

	signers := []types.Address{accounts[0].Address, accounts[2].Address}
	if err := kr.Sign(body, signers); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if err := body.VerifySignatures(); err != nil {
		t.Errorf("VerifySignatures() error: %v", err)
	}
}

func TestKeyring_MissingSignerForInput(t *testing.T) {
	master := testMaster(t)
	accounts := testAccounts(t, master, 2)
	kr, _ := KeyringFromMaster(master, accounts)

	body := tx.NewBuilder().
		AddInput(outpoint(1, 0), accounts[0].Address).
		AddInput(outpoint(2, 0), accounts[1].Address).
		AddOutput(100, accounts[0].Address).
		Build()

	if err := kr.Sign(body, []types.Address{accounts[0].Address}); err == nil {
		t.Error("Sign succeeded without a key for every input owner")
	}
}

func TestKeyring_UnknownSigner(t *testing.T) {
	kr := NewKeyring()
	body := tx.NewBuilder().AddOutput(1, types.Address{1}).Build()
	if err := kr.Sign(body, []types.Address{{9}}); !errors.Is(err, ErrUnknownSigner) {
		t.Errorf("Sign() = %v, want ErrUnknownSigner", err)
	}
}

func TestKeyring_Wipe(t *testing.T) {
	master := testMaster(t)
	accounts := testAccounts(t, master, 1)
	kr, _ := KeyringFromMaster(master, accounts)
	if !kr.Has(accounts[0].Address) {
		t.Fatal("key missing before wipe")
	}
	kr.Wipe()
	if kr.Has(accounts[0].Address) {
		t.Error("key survived Wipe")
	}
}

func TestKeyringFromMaster_AddressMismatch(t *testing.T) {
	master := testMaster(t)
	bad := []Account{{Chain: ChainExternal, Index: 0, Address: types.Address{0xff}}}
	if _, err := KeyringFromMaster(master, bad); err == nil {
		t.Error("mismatched account address accepted")
	}
}

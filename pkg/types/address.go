package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Bech32 prefixes of the two networks.
const (
	MainnetHRP = "kpay"
	TestnetHRP = "tkpay"
)

var (
	// ErrNotAddress is returned for strings that are not an address at all,
	// such as contact handles.
	ErrNotAddress = errors.New("not an address")
	// ErrWrongNetwork is returned for an address of the other network.
	ErrWrongNetwork = errors.New("address belongs to another network")
)

// networkHRP is the prefix addresses render with and must parse with.
var networkHRP = MainnetHRP

// SetAddressHRP selects the network prefix. Call it once at startup.
func SetAddressHRP(hrp string) {
	networkHRP = hrp
}

// Address is a 160-bit public key hash that owns ledger outputs.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the bech32 form under the network prefix.
func (a Address) String() string {
	s, err := Bech32Encode(networkHRP, a[:])
	if err != nil {
		return networkHRP + ":" + a.Hex()
	}
	return s
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts anything ParseAddress accepts. An empty string
// decodes to the zero address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 address of the selected network or a raw
// 40-char hex string. Contact handles such as e-mail addresses and phone
// numbers fail with ErrNotAddress; the other network's addresses fail with
// ErrWrongNetwork.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrNotAddress)
	}
	if len(s) == 2*AddressSize {
		if b, err := hex.DecodeString(s); err == nil {
			return Address(b), nil
		}
	}

	hrp, data, err := Bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrNotAddress, s, err)
	}
	switch {
	case hrp == networkHRP:
	case hrp == MainnetHRP || hrp == TestnetHRP:
		return Address{}, fmt.Errorf("%w: %q has prefix %q, want %q", ErrWrongNetwork, s, hrp, networkHRP)
	default:
		return Address{}, fmt.Errorf("%w: %q has unknown prefix %q", ErrNotAddress, s, hrp)
	}
	if len(data) != AddressSize {
		return Address{}, fmt.Errorf("%w: %d-byte payload", ErrNotAddress, len(data))
	}
	return Address(data), nil
}

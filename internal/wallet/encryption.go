package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrWrongPassword is returned when a sealed blob fails authentication.
var ErrWrongPassword = errors.New("wrong password or corrupted data")

const (
	saltSize = 16
	// salt | memory(4) | iterations(4) | threads(1) | nonce(24) | ciphertext
	sealHeader = saltSize + 4 + 4 + 1 + chacha20poly1305.NonceSizeX
)

// KDFParams are the Argon2id cost parameters stored alongside each blob.
type KDFParams struct {
	MemoryKiB  uint32
	Iterations uint32
	Threads    uint8
}

// DefaultKDFParams suit a mid-range phone: 64 MiB, 3 passes.
func DefaultKDFParams() KDFParams {
	return KDFParams{MemoryKiB: 64 * 1024, Iterations: 3, Threads: 2}
}

func (p KDFParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Threads, chacha20poly1305.KeySize)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Seal encrypts plaintext under password with Argon2id and
// XChaCha20-Poly1305. The KDF parameters travel in the header.
func Seal(plaintext, password []byte, params KDFParams) ([]byte, error) {
	if params.Iterations == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("invalid kdf params %+v", params)
	}
	out := make([]byte, sealHeader, sealHeader+len(plaintext)+chacha20poly1305.Overhead)
	salt := out[:saltSize]
	nonce := out[sealHeader-chacha20poly1305.NonceSizeX : sealHeader]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	binary.LittleEndian.PutUint32(out[saltSize:], params.MemoryKiB)
	binary.LittleEndian.PutUint32(out[saltSize+4:], params.Iterations)
	out[saltSize+8] = params.Threads

	key := params.key(password, salt)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return aead.Seal(out, nonce, plaintext, out[:sealHeader-chacha20poly1305.NonceSizeX]), nil
}

// Open reverses Seal.
func Open(sealed, password []byte) ([]byte, error) {
	if len(sealed) < sealHeader+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(sealed))
	}
	params := KDFParams{
		MemoryKiB:  binary.LittleEndian.Uint32(sealed[saltSize:]),
		Iterations: binary.LittleEndian.Uint32(sealed[saltSize+4:]),
		Threads:    sealed[saltSize+8],
	}
	if params.Iterations == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("invalid kdf params in header")
	}

	key := params.key(password, sealed[:saltSize])
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonceStart := sealHeader - chacha20poly1305.NonceSizeX
	plaintext, err := aead.Open(nil, sealed[nonceStart:sealHeader], sealed[sealHeader:], sealed[:nonceStart])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

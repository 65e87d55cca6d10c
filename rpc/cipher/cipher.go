package cipher

import (
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/common"
	"golang.org/x/crypto/chacha20"
)

const (
	// KeySize is the size of the pre-shared key
	KeySize = chacha20.KeySize
	// NonceSize is the size of the nonce that precedes every ciphertext
	NonceSize = chacha20.NonceSize
)

// Transform XORs data with the ChaCha20 keystream for key and nonce.
// Encryption and decryption are the same operation. data is not modified.
func Transform(key, nonce, data []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d, expected %d", len(key), KeySize)
	}
	if len(nonce) != NonceSize {
		return nil, common.NewErrorf(common.ErrCFraming, "invalid nonce size %d, expected %d", len(nonce), NonceSize)
	}

	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// MaskNonce applies the nonce mask: the last 8 bytes are encrypted with the
// first 4 bytes repeated three times as nonce. The first 4 bytes stay as they are.
// The mask is its own inverse, so it turns a seed into the wire nonce and back.
func MaskNonce(key, nonce []byte) ([]byte, error) {
	if len(nonce) < NonceSize {
		return nil, common.NewErrorf(common.ErrCFraming, "nonce too short (%d bytes)", len(nonce))
	}

	triple := make([]byte, NonceSize)
	copy(triple[0:4], nonce[0:4])
	copy(triple[4:8], nonce[0:4])
	copy(triple[8:12], nonce[0:4])

	masked, err := Transform(key, triple, nonce[4:NonceSize])
	if err != nil {
		return nil, err
	}

	// reuse the triple buffer for the result
	copy(triple[4:], masked)
	return triple, nil
}

// Seal encrypts plaintext with the seed and returns wireNonce || ciphertext
func Seal(key, seed, plaintext []byte) ([]byte, error) {
	wireNonce, err := MaskNonce(key, seed)
	if err != nil {
		return nil, err
	}

	ciphertext, err := Transform(key, seed[:NonceSize], plaintext)
	if err != nil {
		return nil, err
	}

	return append(wireNonce, ciphertext...), nil
}

// Open reverses Seal. data must hold the 12 byte wire nonce and at least one ciphertext byte.
func Open(key, data []byte) ([]byte, error) {
	if len(data) < NonceSize+1 {
		return nil, common.NewErrorf(common.ErrCFraming, "invalid datagram: %d bytes, need at least %d", len(data), NonceSize+1)
	}

	seed, err := MaskNonce(key, data[:NonceSize])
	if err != nil {
		return nil, err
	}

	return Transform(key, seed, data[NonceSize:])
}

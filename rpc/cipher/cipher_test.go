package cipher

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/spf13/afero"
	"testing"
	"time"
)

// testKey returns a deterministic 32 byte key
func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

// fixedDeriver returns a deriver with a constant random source and clock
func fixedDeriver(random []byte, unix int64) *NonceDeriver {
	return NewNonceDeriver(
		WithRandom(bytes.NewReader(random)),
		WithClock(func() time.Time { return time.Unix(unix, 0) }),
	)
}

// TestTransformRoundTrip tests encrypt-then-decrypt for various input sizes
func TestTransformRoundTrip(t *testing.T) {
	key := testKey()
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	sizes := map[string]int{
		"Empty": 0,
		"One":   1,
		"Large": 64*1024 + 17,
	}

	for name, size := range sizes {
		t.Run(name, func(t *testing.T) {
			plain := make([]byte, size)
			for i := range plain {
				plain[i] = byte(i)
			}

			enc, err := Transform(key, nonce, plain)
			if err != nil {
				t.Fatalf("Failed to encrypt: %v", err)
			}
			if size > 0 && bytes.Equal(enc, plain) {
				t.Errorf("Ciphertext equals plaintext")
			}

			dec, err := Transform(key, nonce, enc)
			if err != nil {
				t.Fatalf("Failed to decrypt: %v", err)
			}
			if !bytes.Equal(dec, plain) {
				t.Errorf("Decrypted data doesn't match the original")
			}
		})
	}
}

// TestTransformKnownKeystream tests Transform against the first ChaCha20 block of RFC 8439 A.1
func TestTransformKnownKeystream(t *testing.T) {
	expected := []byte{
		0x76, 0xb8, 0xe0, 0xad, 0xa0, 0xf1, 0x3d, 0x90, 0x40, 0x5d, 0x6a, 0xe5, 0x53, 0x86, 0xbd, 0x28,
		0xbd, 0xd2, 0x19, 0xb8, 0xa0, 0x8d, 0xed, 0x1a, 0xa8, 0x36, 0xef, 0xcc, 0x8b, 0x77, 0x0d, 0xc7,
		0xda, 0x41, 0x59, 0x7c, 0x51, 0x57, 0x48, 0x8d, 0x77, 0x24, 0xe0, 0x3f, 0xb8, 0xd8, 0x4a, 0x37,
		0x6a, 0x43, 0xb8, 0xf4, 0x15, 0x18, 0xa1, 0x1c, 0xc3, 0x87, 0xb6, 0x69, 0xb2, 0xee, 0x65, 0x86,
	}

	// all-zero key, nonce and plaintext yield the raw keystream
	got, err := Transform(make([]byte, KeySize), make([]byte, NonceSize), make([]byte, len(expected)))
	if err != nil {
		t.Fatalf("Failed to transform: %v", err)
	}
	if !bytes.Equal(got, expected) {
		t.Errorf("Unexpected keystream:\nExpected: %x\nGot: %x", expected, got)
	}
}

// TestTransformRejectsShortNonce tests that a nonce shorter than 12 bytes is a framing error
func TestTransformRejectsShortNonce(t *testing.T) {
	if _, err := Transform(testKey(), make([]byte, 11), []byte("x")); !errors.Is(err, common.ErrFraming) {
		t.Errorf("Expected framing error, got %v", err)
	}
	if _, err := MaskNonce(testKey(), make([]byte, 11)); !errors.Is(err, common.ErrFraming) {
		t.Errorf("Expected framing error, got %v", err)
	}
	if _, err := Transform(make([]byte, 16), make([]byte, 12), []byte("x")); err == nil {
		t.Errorf("Expected error for short key")
	}
}

// TestMaskNonceIsInvolution tests that masking twice yields the original nonce
func TestMaskNonceIsInvolution(t *testing.T) {
	key := testKey()
	seed := []byte{0xde, 0xad, 0xbe, 0xef, 1, 0, 0, 0, 0, 0, 0, 0}

	masked, err := MaskNonce(key, seed)
	if err != nil {
		t.Fatalf("Failed to mask: %v", err)
	}
	if !bytes.Equal(masked[:4], seed[:4]) {
		t.Errorf("First 4 bytes must stay unmasked: %x vs %x", masked[:4], seed[:4])
	}
	if bytes.Equal(masked[4:], seed[4:]) {
		t.Errorf("Last 8 bytes must be masked")
	}

	unmasked, err := MaskNonce(key, masked)
	if err != nil {
		t.Fatalf("Failed to unmask: %v", err)
	}
	if !bytes.Equal(unmasked, seed) {
		t.Errorf("Unmasked nonce %x doesn't match seed %x", unmasked, seed)
	}
}

// sealWith seals plaintext with a fresh seed of d
func sealWith(t *testing.T, d *NonceDeriver, key, plaintext []byte) (seed, sealed []byte) {
	t.Helper()
	seed, err := d.Seed()
	if err != nil {
		t.Fatalf("Failed to create seed: %v", err)
	}
	sealed, err = Seal(key, seed, plaintext)
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}
	return seed, sealed
}

// TestNonceDeterminism tests that the same random bytes and time give the same datagram body
func TestNonceDeterminism(t *testing.T) {
	key := testKey()
	payload := []byte("payload")

	seedA, sealedA := sealWith(t, fixedDeriver([]byte{1, 2, 3, 4}, 1700000000), key, payload)
	seedB, sealedB := sealWith(t, fixedDeriver([]byte{1, 2, 3, 4}, 1700000000), key, payload)
	if !bytes.Equal(seedA, seedB) || !bytes.Equal(sealedA, sealedB) {
		t.Errorf("Same inputs produced different datagrams: %x / %x", sealedA, sealedB)
	}

	// seed layout: random || unix seconds (LE)
	expected := []byte{1, 2, 3, 4, 0x00, 0xf1, 0x53, 0x65, 0, 0, 0, 0}
	if !bytes.Equal(seedA, expected) {
		t.Errorf("Unexpected seed layout: %x, expected %x", seedA, expected)
	}

	_, sealedC := sealWith(t, fixedDeriver([]byte{4, 3, 2, 1}, 1700000000), key, payload)
	if bytes.Equal(sealedA[:NonceSize], sealedC[:NonceSize]) {
		t.Errorf("Different random inputs produced the same nonce")
	}
}

// TestNonceFromCryptoRand tests that the default deriver does not repeat itself
func TestNonceFromCryptoRand(t *testing.T) {
	d := NewNonceDeriver()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		_, sealed := sealWith(t, d, testKey(), []byte{0})
		if len(sealed) != NonceSize+1 {
			t.Fatalf("Sealed data has %d bytes", len(sealed))
		}
		seen[string(sealed[:NonceSize])] = struct{}{}
	}
	// 1000 draws from 2^32 random prefixes, a collision is practically impossible
	if len(seen) < 999 {
		t.Errorf("Too many repeated nonces: %d unique of 1000", len(seen))
	}
}

// TestSealOpen tests the datagram body produced by Seal
func TestSealOpen(t *testing.T) {
	key := testKey()
	seed, sealed := sealWith(t, fixedDeriver([]byte{9, 9, 9, 9}, 42), key, []byte("hello dfs"))

	wire, err := MaskNonce(key, seed)
	if err != nil {
		t.Fatalf("Failed to mask: %v", err)
	}
	if !bytes.Equal(sealed[:NonceSize], wire) {
		t.Errorf("Sealed data must start with the wire nonce")
	}

	// the payload is encrypted with the seed, not with the wire nonce
	direct, _ := Transform(key, seed, []byte("hello dfs"))
	if !bytes.Equal(sealed[NonceSize:], direct) {
		t.Errorf("Payload is not encrypted with the seed")
	}

	opened, err := Open(key, sealed)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if string(opened) != "hello dfs" {
		t.Errorf("Unexpected plaintext %q", opened)
	}
}

// TestOpenTooShort tests that less than 13 bytes is a framing error
func TestOpenTooShort(t *testing.T) {
	for _, n := range []int{0, 1, 12} {
		if _, err := Open(testKey(), make([]byte, n)); !errors.Is(err, common.ErrFraming) {
			t.Errorf("Expected framing error for %d bytes, got %v", n, err)
		}
	}
}

// BenchmarkSeal benchmarks sealing a 1KB payload
func BenchmarkSeal(b *testing.B) {
	key := testKey()
	d := NewNonceDeriver()
	payload := make([]byte, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seed, err := d.Seed()
		if err != nil {
			b.Fatalf("Failed to create seed: %v", err)
		}
		if _, err := Seal(key, seed, payload); err != nil {
			b.Fatalf("Failed to seal: %v", err)
		}
	}
}

// TestLoadKey tests reading key files
func TestLoadKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/keys/user.key", testKey(), 0o600)
	_ = afero.WriteFile(fs, "/keys/short.key", []byte{1, 2, 3}, 0o600)

	key, err := LoadKey(fs, "/keys/user.key")
	if err != nil {
		t.Fatalf("Failed to load key: %v", err)
	}
	if !bytes.Equal(key, testKey()) {
		t.Errorf("Unexpected key %v", key)
	}

	if _, err := LoadKey(fs, "/keys/short.key"); err == nil {
		t.Errorf("Expected error for short key file")
	}
	if _, err := LoadKey(fs, "/keys/missing.key"); err == nil {
		t.Errorf("Expected error for missing key file")
	}
}

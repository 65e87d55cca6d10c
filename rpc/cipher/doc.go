// Package cipher implements the per-datagram encryption of dFS.
//
// Every datagram is encrypted with ChaCha20 (96 bit nonce, no authentication tag)
// using the pre-shared 32 byte key of the user. The nonce is built from 4 random
// bytes and the current unix time. Before it is sent, its last 8 bytes are masked
// by encrypting them with the same key and the first 4 bytes repeated three times
// as nonce, so an observer cannot read the timestamp. Masking is an involution:
// the receiver masks the 12 received bytes again and gets the payload nonce back.
//
// Layout produced by Seal and consumed by Open:
//
//	wireNonce[12] || ciphertext[...]
//
// Note that nothing authenticates the ciphertext. A modified datagram decrypts to
// garbage which is only caught by the length checks of the serializer.
package cipher

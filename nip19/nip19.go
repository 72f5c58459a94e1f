// Package nip19 implements the bech32 human-readable encodings for
// keys: npub for public keys and nsec for secret keys.
package nip19

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Human-readable prefixes for the key encodings.
const (
	PublicKeyPrefix = "npub"
	SecretKeyPrefix = "nsec"
)

// ErrWrongPrefix reports a bech32 string carrying an unexpected
// human-readable part.
var ErrWrongPrefix = errors.New("nip19: unexpected bech32 prefix")

// EncodeNpub encodes a 32-byte x-only public key as npub.
func EncodeNpub(pubkey []byte) (string, error) {
	return encode(PublicKeyPrefix, pubkey)
}

// EncodeNsec encodes a 32-byte secret key as nsec.
func EncodeNsec(seckey []byte) (string, error) {
	return encode(SecretKeyPrefix, seckey)
}

// DecodeNpub decodes an npub string to the 32-byte public key.
func DecodeNpub(s string) ([]byte, error) {
	return decode(PublicKeyPrefix, s)
}

// DecodeNsec decodes an nsec string to the 32-byte secret key.
func DecodeNsec(s string) ([]byte, error) {
	return decode(SecretKeyPrefix, s)
}

func encode(hrp string, data []byte) (string, error) {
	if len(data) != 32 {
		return "", fmt.Errorf("nip19: key must be 32 bytes, got %d", len(data))
	}
	bits5, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, bits5)
}

func decode(wantHRP, s string) ([]byte, error) {
	hrp, bits5, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, err
	}
	if hrp != wantHRP {
		return nil, ErrWrongPrefix
	}
	data, err := bech32.ConvertBits(bits5, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("nip19: decoded key must be 32 bytes, got %d", len(data))
	}
	return data, nil
}

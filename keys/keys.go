// Package keys models the asymmetric identity used to author events:
// a secp256k1 secret key and the x-only public key derived from it.
package keys

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/Shugur-Network/norc/nip19"
)

// ErrInvalidSecretKey reports a secret key that is not valid hex, not
// 32 bytes, or not a scalar in [1, n-1].
var ErrInvalidSecretKey = errors.New("keys: invalid secret key")

// Identity is an immutable keypair. The public fields are always
// derived from SecretKey at construction, so the pair can never be
// inconsistent.
type Identity struct {
	SecretKey *btcec.PrivateKey
	PublicKey *btcec.PublicKey

	// SecretKeyHex and PublicKeyHex are the 64-character lowercase hex
	// encodings used in protocol fields.
	SecretKeyHex string
	PublicKeyHex string

	// Npub is the bech32 display form of the public key.
	Npub string
}

// Generate creates an identity from a fresh random secret key.
func Generate() (*Identity, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return fromPrivateKey(sk)
}

// FromString builds an identity from a secret key given as 64 hex
// characters or as an nsec bech32 string, which is transparently
// decoded first.
func FromString(secret string) (*Identity, error) {
	if strings.HasPrefix(secret, nip19.SecretKeyPrefix) {
		raw, err := nip19.DecodeNsec(secret)
		if err != nil {
			return nil, ErrInvalidSecretKey
		}
		secret = hex.EncodeToString(raw)
	}
	raw, err := hex.DecodeString(secret)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidSecretKey
	}
	if !scalarInRange(raw) {
		return nil, ErrInvalidSecretKey
	}
	sk, _ := btcec.PrivKeyFromBytes(raw)
	return fromPrivateKey(sk)
}

func fromPrivateKey(sk *btcec.PrivateKey) (*Identity, error) {
	pk := sk.PubKey()
	pkHex := hex.EncodeToString(schnorr.SerializePubKey(pk))
	npub, err := nip19.EncodeNpub(schnorr.SerializePubKey(pk))
	if err != nil {
		return nil, err
	}
	return &Identity{
		SecretKey:    sk,
		PublicKey:    pk,
		SecretKeyHex: hex.EncodeToString(sk.Serialize()),
		PublicKeyHex: pkHex,
		Npub:         npub,
	}, nil
}

// Nsec returns the bech32 display form of the secret key.
func (id *Identity) Nsec() (string, error) {
	return nip19.EncodeNsec(id.SecretKey.Serialize())
}

// PublicKeyHexFromSecret derives the x-only public key hex for a
// secret key string without retaining the identity.
func PublicKeyHexFromSecret(secret string) (string, error) {
	id, err := FromString(secret)
	if err != nil {
		return "", err
	}
	return id.PublicKeyHex, nil
}

// scalarInRange checks 0 < raw < n for the secp256k1 group order,
// in constant time.
func scalarInRange(raw []byte) bool {
	var s btcec.ModNScalar
	overflow := s.SetByteSlice(raw)
	ok := !overflow && !s.IsZero()
	s.Zero()
	return ok
}

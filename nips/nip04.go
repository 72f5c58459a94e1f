package nips

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// Encrypted direct messages: AES-256-CBC under the ECDH shared secret
// of the two keys, content formatted "<base64>?iv=<base64>".

var (
	// ErrInvalidContentFormat reports a DM content missing the
	// "?iv=" separator.
	ErrInvalidContentFormat = errors.New("nips: expected \"<encrypted>?iv=<iv>\" content")
	// ErrBadPadding reports ciphertext whose PKCS#7 padding is
	// inconsistent, typically a wrong key.
	ErrBadPadding = errors.New("nips: invalid message padding")
)

// DirectMessage is a decrypted kind-4 message.
type DirectMessage struct {
	Author    string
	Content   string
	Timestamp int64
}

// SharedSecret derives the 32-byte ECDH secret between our secret key
// and the peer's x-only public key.
func SharedSecret(id *keys.Identity, peerPubKeyHex string) ([]byte, error) {
	raw, err := hex.DecodeString(peerPubKeyHex)
	if err != nil || len(raw) != 32 {
		return nil, event.ErrMalformedKey
	}
	pk, err := schnorr.ParsePubKey(raw)
	if err != nil {
		return nil, event.ErrMalformedKey
	}
	return btcec.GenerateSharedSecret(id.SecretKey, pk), nil
}

// Encrypt encrypts plaintext for the peer, returning the wire content
// format.
func Encrypt(id *keys.Identity, peerPubKeyHex, plaintext string) (string, error) {
	key, err := SharedSecret(id, peerPubKeyHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return fmt.Sprintf("%s?iv=%s",
		base64.StdEncoding.EncodeToString(ct),
		base64.StdEncoding.EncodeToString(iv)), nil
}

// Decrypt reverses Encrypt for content received from the peer.
func Decrypt(id *keys.Identity, peerPubKeyHex, content string) (string, error) {
	parts := strings.Split(content, "?iv=")
	if len(parts) != 2 {
		return "", ErrInvalidContentFormat
	}
	ct, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	key, err := SharedSecret(id, peerPubKeyHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	if len(iv) != aes.BlockSize || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrInvalidContentFormat
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	return pkcs7Unpad(pt)
}

// SendPrivateMessage encrypts content for peerPubKeyHex and publishes
// it as a kind-4 event tagged with the recipient.
func SendPrivateMessage(ctx context.Context, c *relay.Client, id *keys.Identity, peerPubKeyHex, content string) (event.Event, error) {
	encrypted, err := Encrypt(id, peerPubKeyHex, content)
	if err != nil {
		return event.Event{}, err
	}
	tags := [][]string{event.PubKeyTag(peerPubKeyHex)}
	return signAndPublish(ctx, c, id, event.New(id, event.KindEncryptedDM, encrypted, tags))
}

// FetchPrivateMessages collects the kind-4 events addressed to the
// identity from peerPubKeyHex and decrypts them. Messages that fail to
// decrypt are skipped.
func FetchPrivateMessages(ctx context.Context, c *relay.Client, id *keys.Identity, peerPubKeyHex string) ([]DirectMessage, error) {
	events, err := c.GetEventsOf(ctx, []filter.Filter{{
		Authors: []string{peerPubKeyHex},
		Kinds:   []int{event.KindEncryptedDM},
		P:       []string{id.PublicKeyHex},
	}})
	if err != nil && len(events) == 0 {
		return nil, err
	}
	messages := make([]DirectMessage, 0, len(events))
	for _, ev := range events {
		plaintext, derr := Decrypt(id, ev.PubKey, ev.Content)
		if derr != nil {
			continue
		}
		messages = append(messages, DirectMessage{
			Author:    ev.PubKey,
			Content:   plaintext,
			Timestamp: ev.CreatedAt,
		})
	}
	return messages, err
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrBadPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return "", ErrBadPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return "", ErrBadPadding
		}
	}
	return string(data[:len(data)-pad]), nil
}

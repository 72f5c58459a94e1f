package event

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/Shugur-Network/norc/keys"
)

// ErrKindOutOfRange reports a kind outside the base protocol range.
var ErrKindOutOfRange = errors.New("event: kind outside 0-65535")

// Builder is an event in preparation: mutable until signed. Signing
// freezes it into an immutable Event, so there is no way to mine or
// edit an already-signed event.
type Builder struct {
	PubKey    string
	CreatedAt int64
	Kind      int
	Tags      [][]string
	Content   string
}

// New starts a builder for the given author, stamped with the current
// time. Tags may be nil.
func New(id *keys.Identity, kind int, content string, tags [][]string) *Builder {
	if tags == nil {
		tags = [][]string{}
	}
	return &Builder{
		PubKey:    id.PublicKeyHex,
		CreatedAt: time.Now().Unix(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
}

// Serialize returns the canonical byte form of the builder's fields.
func (b *Builder) Serialize() []byte {
	dst := make([]byte, 0, 100+len(b.Content)+len(b.Tags)*48)
	return serializeInto(dst, b.PubKey, b.CreatedAt, b.Kind, b.Tags, b.Content)
}

// ID returns the content-addressed id of the current builder state.
// Mutating any field changes the id.
func (b *Builder) ID() string {
	sum := sha256.Sum256(b.Serialize())
	return hex.EncodeToString(sum[:])
}

// Sign derives the id from the canonical serialization, signs it with
// the identity's secret key, and returns the frozen event.
func (b *Builder) Sign(id *keys.Identity) (Event, error) {
	if b.Kind < 0 || b.Kind > MaxKind {
		return Event{}, ErrKindOutOfRange
	}
	digest := sha256.Sum256(b.Serialize())
	sig, err := schnorr.Sign(id.SecretKey, digest[:])
	if err != nil {
		return Event{}, err
	}
	tags := b.Tags
	if tags == nil {
		tags = [][]string{}
	}
	return Event{
		ID:        hex.EncodeToString(digest[:]),
		PubKey:    b.PubKey,
		CreatedAt: b.CreatedAt,
		Kind:      b.Kind,
		Tags:      tags,
		Content:   b.Content,
		Sig:       hex.EncodeToString(sig.Serialize()),
	}, nil
}

// Package nips layers the protocol-extension conveniences over the
// core client: metadata, contact lists, direct messages, deletions,
// reactions, and the replaceable/ephemeral event ranges. Every helper
// is a thin, stateless transform that builds an event and hands it to
// the client.
package nips

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// ErrNoMetadata reports a SetMetadata call with every field empty.
var ErrNoMetadata = errors.New("nips: no metadata provided")

// Metadata is the kind-0 profile content.
type Metadata struct {
	Name    string `json:"name,omitempty"`
	About   string `json:"about,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// SetMetadata publishes a kind-0 event replacing the identity's
// profile. At least one field must be set.
func SetMetadata(ctx context.Context, c *relay.Client, id *keys.Identity, md Metadata) (event.Event, error) {
	if md.Name == "" && md.About == "" && md.Picture == "" {
		return event.Event{}, ErrNoMetadata
	}
	content, err := json.Marshal(md)
	if err != nil {
		return event.Event{}, err
	}
	return signAndPublish(ctx, c, id, event.New(id, event.KindSetMetadata, string(content), nil))
}

// PublishTextNote publishes a kind-1 text note and returns the signed
// event.
func PublishTextNote(ctx context.Context, c *relay.Client, id *keys.Identity, content string, tags [][]string) (event.Event, error) {
	return signAndPublish(ctx, c, id, event.New(id, event.KindTextNote, content, tags))
}

// RecommendRelay publishes a kind-2 relay recommendation.
func RecommendRelay(ctx context.Context, c *relay.Client, id *keys.Identity, relayURL string) (event.Event, error) {
	return signAndPublish(ctx, c, id, event.New(id, event.KindRecommendRelay, relayURL, nil))
}

func signAndPublish(ctx context.Context, c *relay.Client, id *keys.Identity, b *event.Builder) (event.Event, error) {
	ev, err := b.Sign(id)
	if err != nil {
		return event.Event{}, err
	}
	if err := c.Publish(ctx, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

package nips

import (
	"context"
	"errors"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// ErrBaseKindOutOfRange reports a base kind above 9999, which cannot
// be shifted into the replaceable or ephemeral range.
var ErrBaseKindOutOfRange = errors.New("nips: base kind must be at most 9999")

// PublishReplaceableEvent shifts baseKind into the replaceable range
// (10000 <= kind < 20000) and publishes it. Relays keep only the
// newest replaceable event per author and kind.
func PublishReplaceableEvent(ctx context.Context, c *relay.Client, id *keys.Identity, baseKind int, content string, tags [][]string) (event.Event, error) {
	if baseKind < 0 || baseKind > 9999 {
		return event.Event{}, ErrBaseKindOutOfRange
	}
	return signAndPublish(ctx, c, id, event.New(id, event.KindReplaceableBase+baseKind, content, tags))
}

// PublishEphemeralEvent shifts baseKind into the ephemeral range
// (20000 <= kind < 30000) and publishes it. Relays deliver ephemeral
// events to live subscribers without storing them.
func PublishEphemeralEvent(ctx context.Context, c *relay.Client, id *keys.Identity, baseKind int, content string, tags [][]string) (event.Event, error) {
	if baseKind < 0 || baseKind > 9999 {
		return event.Event{}, ErrBaseKindOutOfRange
	}
	return signAndPublish(ctx, c, id, event.New(id, event.KindEphemeralBase+baseKind, content, tags))
}

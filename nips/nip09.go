package nips

import (
	"context"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// DeleteEvents publishes a kind-5 deletion request for the given event
// ids, with an optional human-readable reason as content.
func DeleteEvents(ctx context.Context, c *relay.Client, id *keys.Identity, eventIDs []string, reason string) (event.Event, error) {
	tags := make([][]string, 0, len(eventIDs))
	for _, eid := range eventIDs {
		tags = append(tags, event.EventTag(eid))
	}
	return signAndPublish(ctx, c, id, event.New(id, event.KindDeletion, reason, tags))
}

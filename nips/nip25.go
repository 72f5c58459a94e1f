package nips

import (
	"context"
	"errors"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// ErrEmptyReaction reports a reaction with no content; relays would
// interpret it inconsistently.
var ErrEmptyReaction = errors.New("nips: reaction content must not be empty")

// React publishes a kind-7 reaction to the target event: "+" for
// like, "-" for dislike, or an emoji. The target's id and author are
// carried as "e" and "p" tags so clients can attribute the reaction.
func React(ctx context.Context, c *relay.Client, id *keys.Identity, targetID, targetAuthor, content string) (event.Event, error) {
	if content == "" {
		return event.Event{}, ErrEmptyReaction
	}
	tags := [][]string{event.EventTag(targetID), event.PubKeyTag(targetAuthor)}
	return signAndPublish(ctx, c, id, event.New(id, event.KindReaction, content, tags))
}

// ReactToEvent reacts to a fully known target event. The target's own
// "e" and "p" tags are carried over before the target itself is
// referenced, so threads of reactions stay connected to the root.
func ReactToEvent(ctx context.Context, c *relay.Client, id *keys.Identity, target *event.Event, content string) (event.Event, error) {
	if content == "" {
		return event.Event{}, ErrEmptyReaction
	}
	var tags [][]string
	for _, tag := range target.Tags {
		if len(tag) >= 2 && (tag[0] == "e" || tag[0] == "p") {
			tags = append(tags, tag)
		}
	}
	tags = append(tags, event.EventTag(target.ID), event.PubKeyTag(target.PubKey))
	return signAndPublish(ctx, c, id, event.New(id, event.KindReaction, content, tags))
}

// Like is shorthand for a "+" reaction.
func Like(ctx context.Context, c *relay.Client, id *keys.Identity, targetID, targetAuthor string) (event.Event, error) {
	return React(ctx, c, id, targetID, targetAuthor, "+")
}

// Dislike is shorthand for a "-" reaction.
func Dislike(ctx context.Context, c *relay.Client, id *keys.Identity, targetID, targetAuthor string) (event.Event, error) {
	return React(ctx, c, id, targetID, targetAuthor, "-")
}

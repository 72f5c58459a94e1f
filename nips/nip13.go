package nips

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// PublishPOWTextNote mines a kind-1 note to difficulty leading zero
// bits before signing and publishing it. Mining runs on the client's
// worker pool, off the relay read loops; bound it with ctx.
func PublishPOWTextNote(ctx context.Context, c *relay.Client, id *keys.Identity, content string, tags [][]string, difficulty int) (event.Event, error) {
	b := event.New(id, event.KindTextNote, content, tags)
	ev, err := c.MineAndSign(ctx, b, id, difficulty)
	if err != nil {
		return event.Event{}, err
	}
	if err := c.Publish(ctx, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// CheckPOW verifies that an event's id meets the difficulty its nonce
// tag commits to, and that the commitment is at least minDifficulty
// when one is required.
func CheckPOW(ev *event.Event, minDifficulty int) error {
	actual := ev.Difficulty()
	committed, hasCommitment := nonceCommitment(ev)

	if minDifficulty > 0 {
		if !hasCommitment {
			return fmt.Errorf("nips: difficulty %d required but event has no nonce tag", minDifficulty)
		}
		if committed < minDifficulty {
			return fmt.Errorf("nips: committed difficulty %d below required %d", committed, minDifficulty)
		}
	}
	if hasCommitment && actual < committed {
		return fmt.Errorf("nips: actual difficulty %d below committed %d", actual, committed)
	}
	if minDifficulty > 0 && actual < minDifficulty {
		return fmt.Errorf("nips: actual difficulty %d below required %d", actual, minDifficulty)
	}
	return nil
}

// nonceCommitment extracts the target difficulty committed in a
// ["nonce", <counter>, <target>] tag.
func nonceCommitment(ev *event.Event) (int, bool) {
	for _, tag := range ev.Tags {
		if len(tag) >= 3 && tag[0] == "nonce" {
			if target, err := strconv.Atoi(tag[2]); err == nil && target > 0 {
				return target, true
			}
		}
	}
	return 0, false
}

package relay

import (
	"context"
	"encoding/json"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/internal/errors"
)

// GetEventsOf is the one-shot collection: subscribe, wait until every
// relay that received the REQ has sent EOSE or the deadline passes,
// unsubscribe, and return the parsed, deduplicated events.
//
// The wait-for-all barrier is bounded: when ctx carries no deadline,
// the client's CollectTimeout applies. Relays that never settle do
// not hang the collection; their stored events so far are included
// and the call returns the partial results together with a
// COLLECT_TIMEOUT error naming the stragglers, so an empty result is
// distinguishable from "no matching events".
func (c *Client) GetEventsOf(ctx context.Context, filters []filter.Filter) ([]event.Event, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CollectTimeout)
		defer cancel()
	}

	subID, err := c.Subscribe(ctx, filters, "")
	if err != nil {
		if subID == "" {
			return nil, err
		}
		// Partial subscribe: collect from the relays that accepted it.
		c.log.Warn("collecting from a partially subscribed relay set")
	}
	sub, ok := c.subs.Load(subID)
	if !ok {
		return nil, errors.New(errors.ErrorTypeProtocol, "SUBSCRIPTION_LOST", "subscription vanished before settling")
	}

	timedOut := false
	select {
	case <-sub.Settled():
	case <-ctx.Done():
		timedOut = true
	}
	pending := sub.Pending()

	// Unsubscribe must go out even when ctx already expired.
	closeCtx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
	defer cancel()
	if err := c.Unsubscribe(closeCtx, subID); err != nil {
		c.log.Debug("unsubscribe after collection failed")
	}

	events := dedupeByID(ExtractEvents(sub.drain()))
	if timedOut && len(pending) > 0 {
		return events, errors.CollectTimeoutError(pending)
	}
	return events, nil
}

// ExtractEvents parses the third element of each buffered EVENT frame
// as an event. Malformed frames from misbehaving relays are skipped
// silently; one bad frame must never abort the whole collection.
func ExtractEvents(frames []json.RawMessage) []event.Event {
	events := make([]event.Event, 0, len(frames))
	for _, frame := range frames {
		env, err := ParseEnvelope(frame)
		if err != nil {
			continue
		}
		ee, ok := env.(EventEnvelope)
		if !ok {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(ee.EventJSON, &ev); err != nil {
			continue
		}
		if ev.ID == "" || ev.PubKey == "" {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// dedupeByID collapses the same event arriving from multiple relays,
// whose serializations may differ byte-wise.
func dedupeByID(events []event.Event) []event.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, ev := range events {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

package nips

import (
	"context"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/relay"
)

// Contact is one entry of a kind-3 contact list: a followed pubkey
// with an optional main relay hint and petname.
type Contact struct {
	PubKey    string
	MainRelay string
	Petname   string
}

// Tag renders the contact as a "p" tag. A petname without a relay
// keeps its position with an empty relay slot.
func (c Contact) Tag() []string {
	tag := []string{"p", c.PubKey}
	switch {
	case c.MainRelay != "":
		tag = append(tag, c.MainRelay)
		if c.Petname != "" {
			tag = append(tag, c.Petname)
		}
	case c.Petname != "":
		tag = append(tag, "", c.Petname)
	}
	return tag
}

// SetContactList publishes a kind-3 event replacing the identity's
// contact list.
func SetContactList(ctx context.Context, c *relay.Client, id *keys.Identity, contacts []Contact) (event.Event, error) {
	tags := make([][]string, 0, len(contacts))
	for _, contact := range contacts {
		tags = append(tags, contact.Tag())
	}
	return signAndPublish(ctx, c, id, event.New(id, event.KindContactList, "", tags))
}

// GetContactList fetches the latest kind-3 event of pubkey and decodes
// its "p" tags.
func GetContactList(ctx context.Context, c *relay.Client, pubkey string) ([]Contact, error) {
	events, err := c.GetEventsOf(ctx, []filter.Filter{{
		Authors: []string{pubkey},
		Kinds:   []int{event.KindContactList},
		Limit:   filter.Int(1),
	}})
	if err != nil && len(events) == 0 {
		return nil, err
	}

	var contacts []Contact
	for _, ev := range events {
		for _, tag := range ev.Tags {
			if len(tag) < 2 || tag[0] != "p" {
				continue
			}
			contact := Contact{PubKey: tag[1]}
			if len(tag) > 2 {
				contact.MainRelay = tag[2]
			}
			if len(tag) > 3 {
				contact.Petname = tag[3]
			}
			contacts = append(contacts, contact)
		}
	}
	return contacts, nil
}

package nips

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/keys"
)

func TestSetMetadataRequiresAField(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	_, err = SetMetadata(context.Background(), nil, id, Metadata{})
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestContactTag(t *testing.T) {
	cases := []struct {
		name    string
		contact Contact
		want    []string
	}{
		{"pubkey only", Contact{PubKey: "aa"}, []string{"p", "aa"}},
		{"with relay", Contact{PubKey: "aa", MainRelay: "wss://r"}, []string{"p", "aa", "wss://r"}},
		{"with relay and petname", Contact{PubKey: "aa", MainRelay: "wss://r", Petname: "bob"}, []string{"p", "aa", "wss://r", "bob"}},
		{"petname without relay keeps its slot", Contact{PubKey: "aa", Petname: "bob"}, []string{"p", "aa", "", "bob"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.contact.Tag())
		})
	}
}

func TestCheckPOW(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	b := event.New(id, event.KindTextNote, "mined", nil)
	b.Mine(8)
	mined, err := b.Sign(id)
	require.NoError(t, err)

	assert.NoError(t, CheckPOW(&mined, 0))
	assert.NoError(t, CheckPOW(&mined, 8))

	// requiring more than was committed fails
	assert.Error(t, CheckPOW(&mined, mined.Difficulty()+1))

	// an unmined event passes with no requirement but fails with one
	plain, err := event.New(id, event.KindTextNote, "plain", nil).Sign(id)
	require.NoError(t, err)
	assert.NoError(t, CheckPOW(&plain, 0))
	assert.Error(t, CheckPOW(&plain, 8))

	// a commitment the id does not honor is rejected
	forged := plain
	forged.Tags = [][]string{{"nonce", "12345", "40"}}
	assert.Error(t, CheckPOW(&forged, 0))
}

func TestPublishReplaceableEventRejectsBadBaseKind(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	_, err = PublishReplaceableEvent(context.Background(), nil, id, 10000, "x", nil)
	assert.ErrorIs(t, err, ErrBaseKindOutOfRange)
	_, err = PublishReplaceableEvent(context.Background(), nil, id, -1, "x", nil)
	assert.ErrorIs(t, err, ErrBaseKindOutOfRange)

	_, err = PublishEphemeralEvent(context.Background(), nil, id, 10000, "x", nil)
	assert.ErrorIs(t, err, ErrBaseKindOutOfRange)
}

func TestReactRejectsEmptyContent(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	_, err = React(context.Background(), nil, id, "eventid", "author", "")
	assert.ErrorIs(t, err, ErrEmptyReaction)

	target := event.Event{ID: "eventid", PubKey: "author"}
	_, err = ReactToEvent(context.Background(), nil, id, &target, "")
	assert.ErrorIs(t, err, ErrEmptyReaction)
}

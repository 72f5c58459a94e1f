package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/internal/errors"
	"github.com/Shugur-Network/norc/keys"
)

func mustIdentity(t *testing.T) *keys.Identity {
	t.Helper()
	id, err := keys.Generate()
	require.NoError(t, err)
	return id
}

// newFakeRelay starts an in-process websocket relay that feeds every
// inbound frame to handle. The handler may write responses on conn; it
// runs on the connection's single read goroutine, so writes need no
// extra locking.
func newFakeRelay(t *testing.T, handle func(conn *websocket.Conn, frame []json.RawMessage)) (string, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame []json.RawMessage
			if err := json.Unmarshal(data, &frame); err != nil || len(frame) == 0 {
				continue
			}
			if handle != nil {
				handle(conn, frame)
			}
		}
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.Close
}

func frameLabel(frame []json.RawMessage) string {
	var label string
	_ = json.Unmarshal(frame[0], &label)
	return label
}

func frameString(frame []json.RawMessage, i int) string {
	var s string
	_ = json.Unmarshal(frame[i], &s)
	return s
}

func writeFrame(conn *websocket.Conn, parts ...interface{}) {
	payload, _ := json.Marshal(parts)
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

// storedEventJSON fabricates a stored event as a relay would serve it.
// Collection does not verify signatures, so the sig can be empty.
func storedEventJSON(id, pubkey string, kind int, content string) json.RawMessage {
	ev := event.Event{ID: id, PubKey: pubkey, Kind: kind, Tags: [][]string{}, Content: content}
	j, _ := json.Marshal(&ev)
	return j
}

// servingRelay answers every REQ with the given events followed by
// EOSE, and ignores everything else.
func servingRelay(events ...json.RawMessage) func(conn *websocket.Conn, frame []json.RawMessage) {
	return func(conn *websocket.Conn, frame []json.RawMessage) {
		if frameLabel(frame) != "REQ" || len(frame) < 2 {
			return
		}
		subID := frameString(frame, 1)
		for _, ev := range events {
			writeFrame(conn, "EVENT", subID, ev)
		}
		writeFrame(conn, "EOSE", subID)
	}
}

func TestAddRelayRejectsInvalidURL(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	for _, raw := range []string{"http://example.com", "not a url", "wss://"} {
		err := c.AddRelay(context.Background(), raw)
		assert.ErrorIs(t, err, errors.URLParseError(raw, nil), "url %q", raw)
	}
	assert.Empty(t, c.Relays())
}

func TestAddRelayRejectsDuplicate(t *testing.T) {
	url, shutdown := newFakeRelay(t, nil)
	defer shutdown()

	c := New(Options{})
	defer c.Close()

	require.NoError(t, c.AddRelay(context.Background(), url))
	err := c.AddRelay(context.Background(), url)
	assert.ErrorIs(t, err, errors.AlreadyConnectedError(url))
	assert.Equal(t, []string{url}, c.Relays())
}

func TestRemoveRelay(t *testing.T) {
	url, shutdown := newFakeRelay(t, nil)
	defer shutdown()

	c := New(Options{})
	defer c.Close()

	require.NoError(t, c.AddRelay(context.Background(), url))
	require.NoError(t, c.RemoveRelay(url))
	assert.Empty(t, c.Relays())

	err := c.RemoveRelay(url)
	assert.ErrorIs(t, err, errors.RelayNotFoundError(url))
}

func TestPublishWithNoRelays(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	err := c.Publish(context.Background(), &event.Event{ID: "aa", PubKey: "bb"})
	assert.ErrorIs(t, err, errors.NoRelaysError("publish"))
}

func TestPublishDeliversEventFrame(t *testing.T) {
	received := make(chan []json.RawMessage, 1)
	url, shutdown := newFakeRelay(t, func(conn *websocket.Conn, frame []json.RawMessage) {
		if frameLabel(frame) == "EVENT" {
			received <- frame
		}
	})
	defer shutdown()

	c := New(Options{})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), url))

	ev := event.Event{ID: "aa", PubKey: "bb", Kind: 1, Tags: [][]string{}, Content: "hi", Sig: "cc"}
	require.NoError(t, c.Publish(context.Background(), &ev))

	select {
	case frame := <-received:
		require.Len(t, frame, 2)
		var got event.Event
		require.NoError(t, json.Unmarshal(frame[1], &got))
		assert.Equal(t, ev, got)
	case <-time.After(3 * time.Second):
		t.Fatal("relay never received the EVENT frame")
	}
}

func TestGetEventsOfCollectsAndDeduplicates(t *testing.T) {
	evA := storedEventJSON("aaaa", "pk1", 1, "first")
	evB := storedEventJSON("bbbb", "pk1", 1, "second")

	// both relays store evA; only the second stores evB
	urlOne, shutdownOne := newFakeRelay(t, servingRelay(evA))
	defer shutdownOne()
	urlTwo, shutdownTwo := newFakeRelay(t, servingRelay(evA, evB))
	defer shutdownTwo()

	c := New(Options{})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), urlOne))
	require.NoError(t, c.AddRelay(context.Background(), urlTwo))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := c.GetEventsOf(ctx, []filter.Filter{{Kinds: []int{1}}})
	require.NoError(t, err)

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"aaaa", "bbbb"}, ids)
}

func TestGetEventsOfReturnsPartialResultsOnTimeout(t *testing.T) {
	evA := storedEventJSON("aaaa", "pk1", 1, "settled relay")
	evB := storedEventJSON("bbbb", "pk2", 1, "straggler relay")

	urlGood, shutdownGood := newFakeRelay(t, servingRelay(evA))
	defer shutdownGood()

	// sends its event but never EOSE
	urlSilent, shutdownSilent := newFakeRelay(t, func(conn *websocket.Conn, frame []json.RawMessage) {
		if frameLabel(frame) != "REQ" || len(frame) < 2 {
			return
		}
		writeFrame(conn, "EVENT", frameString(frame, 1), evB)
	})
	defer shutdownSilent()

	c := New(Options{CollectTimeout: 500 * time.Millisecond})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), urlGood))
	require.NoError(t, c.AddRelay(context.Background(), urlSilent))

	start := time.Now()
	events, err := c.GetEventsOf(context.Background(), []filter.Filter{{Kinds: []int{1}}})
	elapsed := time.Since(start)

	// partial results come back with the timeout error, so an empty
	// result set is distinguishable from "nothing matched"
	require.ErrorIs(t, err, errors.CollectTimeoutError(nil))
	assert.Contains(t, err.Error(), urlSilent)

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"aaaa", "bbbb"}, ids)
	assert.Less(t, elapsed, 3*time.Second, "collection must not hang on the straggler")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	closed := make(chan string, 1)
	url, shutdown := newFakeRelay(t, func(conn *websocket.Conn, frame []json.RawMessage) {
		switch frameLabel(frame) {
		case "REQ":
			writeFrame(conn, "EOSE", frameString(frame, 1))
		case "CLOSE":
			closed <- frameString(frame, 1)
		}
	})
	defer shutdown()

	c := New(Options{})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), url))

	subID, err := c.Subscribe(context.Background(), []filter.Filter{{Kinds: []int{1}}}, "")
	require.NoError(t, err)
	assert.Len(t, subID, 64)

	sub, ok := c.Subscription(subID)
	require.True(t, ok)
	select {
	case <-sub.Settled():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription never settled")
	}

	require.NoError(t, c.Unsubscribe(context.Background(), subID))
	_, ok = c.Subscription(subID)
	assert.False(t, ok)

	select {
	case got := <-closed:
		assert.Equal(t, subID, got)
	case <-time.After(3 * time.Second):
		t.Fatal("relay never received the CLOSE frame")
	}
}

func TestSubscribeBuffersFramesFromFastRelays(t *testing.T) {
	// The relay answers the REQ on the same goroutine that read it, so
	// its EVENT and EOSE race the tail of Subscribe. The subscription
	// must already be registered: no frame may be dropped and no
	// spurious collect timeout reported, however the race lands.
	evA := storedEventJSON("aaaa", "pk1", 1, "instant reply")
	url, shutdown := newFakeRelay(t, servingRelay(evA))
	defer shutdown()

	c := New(Options{
		CollectTimeout:    5 * time.Second,
		MaxSendsPerSecond: 1000,
		SendBurst:         100,
	})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), url))

	for i := 0; i < 25; i++ {
		events, err := c.GetEventsOf(context.Background(), []filter.Filter{{Kinds: []int{1}}})
		require.NoError(t, err, "iteration %d", i)
		require.Len(t, events, 1, "iteration %d", i)
		assert.Equal(t, "aaaa", events[0].ID)
	}
}

func TestSubscribeRegistersBeforeFanout(t *testing.T) {
	// Hold the REQ unanswered so the window between send and return is
	// observable: the subscription must be visible to dispatch while
	// the fan-out is still in flight.
	reqReceived := make(chan string, 1)
	url, shutdown := newFakeRelay(t, func(conn *websocket.Conn, frame []json.RawMessage) {
		if frameLabel(frame) == "REQ" {
			reqReceived <- frameString(frame, 1)
		}
	})
	defer shutdown()

	c := New(Options{})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), url))

	subID, err := c.Subscribe(context.Background(), nil, "early-frames")
	require.NoError(t, err)

	select {
	case got := <-reqReceived:
		assert.Equal(t, subID, got)
	case <-time.After(3 * time.Second):
		t.Fatal("relay never received the REQ frame")
	}

	sub, ok := c.Subscription(subID)
	require.True(t, ok)

	// frames dispatched right after the REQ must land in the buffer
	// and settle the relay, never fall through to a missing id
	c.dispatch(url, EventEnvelope{
		SubscriptionID: subID,
		Raw:            []byte(`["EVENT","early-frames",{"id":"aaaa"}]`),
	})
	c.dispatch(url, EOSEEnvelope{SubscriptionID: subID})

	select {
	case <-sub.Settled():
	case <-time.After(3 * time.Second):
		t.Fatal("EOSE dispatched after subscribe did not settle the relay")
	}
	require.Len(t, sub.drain(), 1)
	require.NoError(t, c.Unsubscribe(context.Background(), subID))
}

func TestSubscribeSettlesRelaysTheRequestNeverReached(t *testing.T) {
	evA := storedEventJSON("aaaa", "pk1", 1, "from the live relay")
	urlLive, shutdownLive := newFakeRelay(t, servingRelay(evA))
	defer shutdownLive()
	urlDead, shutdownDead := newFakeRelay(t, nil)

	c := New(Options{CollectTimeout: 5 * time.Second})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), urlLive))
	require.NoError(t, c.AddRelay(context.Background(), urlDead))

	// kill the second relay before the REQ goes out; whether its send
	// fails or its session gets evicted first, the collection must not
	// wait on it
	shutdownDead()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	events, err := c.GetEventsOf(ctx, []filter.Filter{{Kinds: []int{1}}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "aaaa", events[0].ID)
}

func TestSubscribeHonorsCallerSubscriptionID(t *testing.T) {
	url, shutdown := newFakeRelay(t, servingRelay())
	defer shutdown()

	c := New(Options{})
	defer c.Close()
	require.NoError(t, c.AddRelay(context.Background(), url))

	subID, err := c.Subscribe(context.Background(), nil, "my-sub")
	require.NoError(t, err)
	assert.Equal(t, "my-sub", subID)
	require.NoError(t, c.Unsubscribe(context.Background(), subID))
}

func TestExtractEventsSkipsMalformedFrames(t *testing.T) {
	frames := []json.RawMessage{
		json.RawMessage(`["EVENT","s",{"id":"aaaa","pubkey":"pk","kind":1,"tags":[],"content":"good","sig":""}]`),
		json.RawMessage(`garbage`),
		json.RawMessage(`["EOSE","s"]`),
		json.RawMessage(`["EVENT","s","not an object"]`),
		json.RawMessage(`["EVENT","s",{"kind":1}]`),
		json.RawMessage(`["EVENT","s",{"id":"bbbb","pubkey":"pk","kind":1,"tags":[],"content":"also good","sig":""}]`),
	}
	events := ExtractEvents(frames)
	require.Len(t, events, 2)
	assert.Equal(t, "aaaa", events[0].ID)
	assert.Equal(t, "bbbb", events[1].ID)
}

func TestDedupeByID(t *testing.T) {
	events := []event.Event{
		{ID: "aa", Content: "kept"},
		{ID: "bb"},
		{ID: "aa", Content: "dropped duplicate"},
	}
	deduped := dedupeByID(events)
	require.Len(t, deduped, 2)
	assert.Equal(t, "kept", deduped[0].Content)
	assert.Equal(t, "bb", deduped[1].ID)
}

func TestMineAndSign(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	id := mustIdentity(t)
	b := event.New(id, event.KindTextNote, "mined", nil)
	ev, err := c.MineAndSign(context.Background(), b, id, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ev.Difficulty(), 8)
	assert.NoError(t, ev.Verify())
}

func TestMineAndSignZeroDifficulty(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	id := mustIdentity(t)
	ev, err := c.MineAndSign(context.Background(), event.New(id, event.KindTextNote, "plain", nil), id, 0)
	require.NoError(t, err)
	assert.Empty(t, ev.Tags)
	assert.NoError(t, ev.Verify())
}

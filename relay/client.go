// Package relay implements the multi-relay client: one session per
// relay endpoint, publish/subscribe fan-out across all of them, and
// the matcher that correlates unordered per-relay streams into
// completed result sets.
package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/internal/config"
	"github.com/Shugur-Network/norc/internal/errors"
	"github.com/Shugur-Network/norc/internal/logger"
	"github.com/Shugur-Network/norc/internal/metrics"
	"github.com/Shugur-Network/norc/internal/workers"
	"github.com/Shugur-Network/norc/keys"
)

// Options tunes the client. Zero values fall back to the defaults
// below.
type Options struct {
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// CollectTimeout bounds GetEventsOf when the caller's context has
	// no deadline: relays that have not settled by then contribute
	// partial results instead of hanging the collection.
	CollectTimeout time.Duration

	POWWorkers int
	POWBacklog int

	MaxSendsPerSecond int
	SendBurst         int
}

func (o *Options) fillDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.CollectTimeout <= 0 {
		o.CollectTimeout = 30 * time.Second
	}
	if o.POWWorkers <= 0 {
		o.POWWorkers = 2
	}
	if o.POWBacklog <= 0 {
		o.POWBacklog = 16
	}
	if o.MaxSendsPerSecond <= 0 {
		o.MaxSendsPerSecond = 20
	}
	if o.SendBurst <= 0 {
		o.SendBurst = 10
	}
}

// Client multiplexes publish, subscribe, and unsubscribe across every
// connected relay. The session table is keyed by URL; sessions are
// only touched through their own methods, never shared raw.
type Client struct {
	opts Options

	sessions *xsync.MapOf[string, *session]
	subs     *xsync.MapOf[string, *Subscription]

	pow *workers.Pool
	log *zap.Logger
}

// New creates a client with no relays connected.
func New(opts Options) *Client {
	opts.fillDefaults()
	return &Client{
		opts:     opts,
		sessions: xsync.NewMapOf[string, *session](),
		subs:     xsync.NewMapOf[string, *Subscription](),
		pow:      workers.NewPool(opts.POWWorkers, opts.POWBacklog),
		log:      logger.New("relay_client"),
	}
}

// NewFromConfig builds a client from loaded configuration and dials
// the configured relays. Dial failures are aggregated; the client is
// still returned with the relays that connected.
func NewFromConfig(ctx context.Context, cfg *config.ClientConfig) (*Client, error) {
	c := New(Options{
		ConnectTimeout:    cfg.ConnectTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		CollectTimeout:    cfg.CollectTimeout,
		POWWorkers:        cfg.POWWorkers,
		POWBacklog:        cfg.POWBacklog,
		MaxSendsPerSecond: cfg.MaxSendsPerSecond,
		SendBurst:         cfg.SendBurst,
	})
	failures := make(map[string]error)
	for _, u := range cfg.Relays {
		if err := c.AddRelay(ctx, u); err != nil {
			failures[u] = err
		}
	}
	if len(failures) > 0 {
		return c, &errors.FanoutError{Op: "connect", Failures: failures}
	}
	return c, nil
}

// AddRelay dials url and adds the session to the table. Adding a URL
// that is already present fails with ALREADY_CONNECTED; the duplicate
// is surfaced, not absorbed.
func (c *Client) AddRelay(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.URLParseError(rawURL, err)
	}
	if _, dup := c.sessions.Load(rawURL); dup {
		return errors.AlreadyConnectedError(rawURL)
	}
	s, err := dialSession(ctx, rawURL, c.opts, c.log)
	if err != nil {
		return err
	}
	if _, raced := c.sessions.LoadOrStore(rawURL, s); raced {
		_ = s.close()
		return errors.AlreadyConnectedError(rawURL)
	}
	metrics.ActiveSessions.Inc()
	go s.readLoop(c)
	c.log.Info("relay added", zap.String("relay", rawURL))
	return nil
}

// RemoveRelay closes the session and evicts it from the table.
func (c *Client) RemoveRelay(rawURL string) error {
	s, ok := c.sessions.LoadAndDelete(rawURL)
	if !ok {
		return errors.RelayNotFoundError(rawURL)
	}
	metrics.ActiveSessions.Dec()
	c.settleRelayEverywhere(rawURL)
	c.log.Info("relay removed", zap.String("relay", rawURL))
	return s.close()
}

// Relays returns the URLs currently in the session table.
func (c *Client) Relays() []string {
	urls := make([]string, 0)
	c.sessions.Range(func(url string, _ *session) bool {
		urls = append(urls, url)
		return true
	})
	return urls
}

// Publish serializes ["EVENT", ev] and sends it to every connected
// relay, best effort. Sends that succeeded are not rolled back when
// others fail; the aggregate error names the relays that failed. With
// zero reachable relays it fails outright.
func (c *Client) Publish(ctx context.Context, ev *event.Event) error {
	payload, err := json.Marshal([]interface{}{"EVENT", ev})
	if err != nil {
		return err
	}
	metrics.EventsPublished.Inc()
	return c.fanout(ctx, "publish", payload, nil)
}

// Subscribe sends ["REQ", id, filters...] to every connected relay and
// registers the subscription with the matcher. An empty subID gets a
// random 64-character hex id. It returns the id in use.
//
// Registration happens before the fan-out: a fast relay can answer the
// REQ before the send loop even returns, and frames for an id the
// matcher does not know yet would be dropped. The pending set starts
// as every candidate relay and is pruned down to the relays the REQ
// actually reached.
func (c *Client) Subscribe(ctx context.Context, filters []filter.Filter, subID string) (string, error) {
	if subID == "" {
		subID = randomSubscriptionID()
	}
	parts := make([]interface{}, 0, 2+len(filters))
	parts = append(parts, "REQ", subID)
	for i := range filters {
		parts = append(parts, &filters[i])
	}
	payload, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}

	candidates := c.Relays()
	sub := newSubscription(subID, filters, candidates)
	c.subs.Store(subID, sub)
	metrics.ActiveSubscriptions.Inc()

	reached := make([]string, 0, len(candidates))
	err = c.fanout(ctx, "subscribe", payload, &reached)

	// Settle every candidate the REQ did not reach, whether its send
	// failed or the session vanished mid fan-out, so collections never
	// wait on a relay that holds no REQ.
	reachedSet := make(map[string]struct{}, len(reached))
	for _, url := range reached {
		reachedSet[url] = struct{}{}
	}
	for _, url := range candidates {
		if _, ok := reachedSet[url]; !ok {
			sub.settle(url)
		}
	}

	if len(reached) == 0 {
		c.subs.Delete(subID)
		metrics.ActiveSubscriptions.Dec()
		return "", err
	}
	// Partial delivery: the subscription exists on the relays that
	// accepted it; settlement only waits for those.
	return subID, err
}

// Unsubscribe sends ["CLOSE", id] to every connected relay and drops
// the subscription from the matcher.
func (c *Client) Unsubscribe(ctx context.Context, subID string) error {
	payload, err := json.Marshal([]string{"CLOSE", subID})
	if err != nil {
		return err
	}
	if _, ok := c.subs.LoadAndDelete(subID); ok {
		metrics.ActiveSubscriptions.Dec()
	}
	return c.fanout(ctx, "unsubscribe", payload, nil)
}

// Subscription returns the live subscription for id, if any.
func (c *Client) Subscription(subID string) (*Subscription, bool) {
	return c.subs.Load(subID)
}

// MineAndSign mines the builder to difficulty on the worker pool and
// signs the result. Mining never runs on the caller's goroutine, so
// calling this from code that also services relay traffic is safe.
// A difficulty of zero skips straight to signing.
func (c *Client) MineAndSign(ctx context.Context, b *event.Builder, id *keys.Identity, difficulty int) (event.Event, error) {
	if difficulty > 0 {
		start := time.Now()
		if err := c.pow.Run(ctx, func() { b.Mine(difficulty) }); err != nil {
			return event.Event{}, err
		}
		metrics.MiningDuration.Observe(time.Since(start).Seconds())
	}
	return b.Sign(id)
}

// Close closes every session and stops the mining pool.
func (c *Client) Close() error {
	var last error
	c.sessions.Range(func(url string, s *session) bool {
		c.sessions.Delete(url)
		metrics.ActiveSessions.Dec()
		if err := s.close(); err != nil {
			last = err
		}
		return true
	})
	c.pow.Stop()
	return last
}

// fanout sends payload to every session. When reached is non-nil it
// collects the URLs that accepted the send.
func (c *Client) fanout(ctx context.Context, op string, payload []byte, reached *[]string) error {
	failures := make(map[string]error)
	attempted := 0
	c.sessions.Range(func(url string, s *session) bool {
		attempted++
		if err := s.send(ctx, c.opts.WriteTimeout, payload); err != nil {
			failures[url] = err
			if op == "publish" {
				metrics.PublishFailures.WithLabelValues(url).Inc()
			}
			return true
		}
		if reached != nil {
			*reached = append(*reached, url)
		}
		return true
	})
	if attempted == 0 {
		return errors.NoRelaysError(op)
	}
	if len(failures) > 0 {
		return &errors.FanoutError{Op: op, Failures: failures}
	}
	return nil
}

// dispatch routes one classified frame to the owning subscription.
// OK and NOTICE are logged and left to extension handlers.
func (c *Client) dispatch(relayURL string, env Envelope) {
	switch e := env.(type) {
	case EventEnvelope:
		if sub, ok := c.subs.Load(e.SubscriptionID); ok {
			sub.addFrame(e.Raw)
		}
	case EOSEEnvelope:
		if sub, ok := c.subs.Load(e.SubscriptionID); ok {
			sub.settle(relayURL)
		}
	case OKEnvelope:
		c.log.Debug("relay acknowledgement",
			zap.String("relay", relayURL),
			zap.String("event_id", e.EventID),
			zap.Bool("accepted", e.Accepted),
			zap.String("message", e.Message))
	case NoticeEnvelope:
		c.log.Info("relay notice",
			zap.String("relay", relayURL),
			zap.String("message", e.Message))
	}
}

// evictDeadSession removes a session whose read loop failed and
// settles it in every subscription so collections do not wait on a
// dead relay.
func (c *Client) evictDeadSession(s *session) {
	if _, ok := c.sessions.LoadAndDelete(s.url); ok {
		metrics.ActiveSessions.Dec()
	}
	_ = s.close()
	c.settleRelayEverywhere(s.url)
}

func (c *Client) settleRelayEverywhere(relayURL string) {
	c.subs.Range(func(_ string, sub *Subscription) bool {
		sub.settle(relayURL)
		return true
	})
}

func randomSubscriptionID() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:64]
	}
	return hex.EncodeToString(buf[:])
}

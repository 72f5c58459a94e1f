package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Shugur-Network/norc/internal/errors"
	"github.com/Shugur-Network/norc/internal/metrics"
)

// session is one relay's connection handle. All writes go through
// send, which serializes them behind writeMu so concurrent callers
// cannot interleave partial frames on the same channel.
type session struct {
	url  string
	conn *websocket.Conn

	writeMu sync.Mutex
	limiter *rate.Limiter

	closed atomic.Bool
	log    *zap.Logger
}

func dialSession(ctx context.Context, url string, opts Options, log *zap.Logger) (*session, error) {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: opts.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.ConnectionError(url, err)
	}
	return &session{
		url:     url,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(opts.MaxSendsPerSecond), opts.SendBurst),
		log:     log.With(zap.String("relay", url)),
	}, nil
}

// send writes one text frame, honoring the per-session rate limiter
// and write timeout.
func (s *session) send(ctx context.Context, writeTimeout time.Duration, payload []byte) error {
	if s.closed.Load() {
		return errors.SendError(s.url, errors.New(errors.ErrorTypeNetwork, "SESSION_CLOSED", "session is closed"))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.SendError(s.url, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.SendError(s.url, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.SendError(s.url, err)
	}
	return nil
}

// readLoop pulls frames until the connection dies, classifying each
// one and handing it to the client's matcher. Frames the relay sends
// in order arrive in order; no ordering holds across relays.
func (s *session) readLoop(c *Client) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Warn("relay connection lost", zap.Error(err))
				c.evictDeadSession(s)
			}
			return
		}
		env, err := ParseEnvelope(data)
		if err != nil {
			// A single bad frame from a misbehaving relay must never
			// abort anything; skip it.
			s.log.Debug("skipping malformed frame", zap.Error(err))
			continue
		}
		label := env.Label()
		if _, unknown := env.(UnknownEnvelope); unknown {
			// Relay-chosen labels would be unbounded metric cardinality.
			label = "other"
		}
		metrics.FramesReceived.WithLabelValues(label).Inc()
		c.dispatch(s.url, env)
	}
}

func (s *session) close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}

package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qitrader/internal/core"
	"qitrader/pkg/websocket"

	apperrors "qitrader/pkg/errors"
)

const (
	defaultWsURL = "wss://ws.okx.com:8443"
	simWsURL     = "wss://wspap.okx.com:8443"

	PublicPath  = "/ws/v5/public"
	PrivatePath = "/ws/v5/private"
)

// Stream is one streaming session (public or private). It decodes raw frames
// into WsMessage and replays login plus all subscriptions after a reconnect.
type Stream struct {
	client *websocket.Client
	logger core.Logger

	signer *Signer // nil for the public stream

	mu   sync.Mutex
	subs []WsSubscribeDetail
}

// StreamURL resolves the session URL for a path, honoring the sim
// environment and an optional override.
func StreamURL(override, path string, sim bool) string {
	if override != "" {
		return override
	}
	base := defaultWsURL
	if sim {
		base = simWsURL
	}
	return base + path
}

// NewStream builds a session against url. A non-nil signer marks the session
// private: every (re)connect logs in before subscriptions are replayed.
func NewStream(url string, queueSize int, sim bool, signer *Signer, logger core.Logger) *Stream {
	header := http.Header{}
	header.Set("User-Agent", "qitrader")
	if sim {
		header.Set("x-simulated-trading", "1")
	}

	s := &Stream{
		signer: signer,
		logger: logger.WithField("stream", url),
	}
	s.client = websocket.NewClient(websocket.Config{
		URL:       url,
		Header:    header,
		QueueSize: queueSize,
	}, logger)
	s.client.SetOnConnected(s.replay)
	return s
}

// Connect performs the handshake and starts the reader and writer tasks.
func (s *Stream) Connect(ctx context.Context) error {
	return s.client.Connect(ctx)
}

// Stop tears the session down.
func (s *Stream) Stop() {
	s.client.Stop()
}

// Read returns the next decoded message. Frames that fail to decode are
// logged and dropped; the session stays up.
func (s *Stream) Read(ctx context.Context) (*WsMessage, error) {
	for {
		raw, err := s.client.Read(ctx)
		if err != nil {
			return nil, err
		}
		var msg WsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Error("dropping undecodable frame", "error", err, "frame", string(raw))
			continue
		}
		return &msg, nil
	}
}

// Write enqueues an outbound frame.
func (s *Stream) Write(ctx context.Context, v interface{}) error {
	return s.client.Write(ctx, v)
}

// Login sends the authentication frame on a private session.
func (s *Stream) Login(ctx context.Context) error {
	if s.signer == nil {
		return fmt.Errorf("login on public stream")
	}
	return s.Write(ctx, WsRequest[WsLoginDetail]{Op: "login", Args: []WsLoginDetail{s.signer.LoginArgs()}})
}

// AwaitLogin consumes frames until the login acknowledgement arrives. An
// error frame fails the login; data frames cannot arrive before the venue
// acknowledges authentication.
func (s *Stream) AwaitLogin(ctx context.Context) error {
	for {
		msg, err := s.Read(ctx)
		if err != nil {
			return err
		}
		switch msg.Event {
		case "login":
			return nil
		case "error":
			return fmt.Errorf("%w: %v", apperrors.ErrAuthenticationFailed, newAPIError(msg.Code, msg.Msg))
		default:
			s.logger.Info("ws event while waiting for login", "event", msg.Event)
		}
	}
}

// Subscribe sends a subscription and records it for replay on reconnect.
func (s *Stream) Subscribe(ctx context.Context, details ...WsSubscribeDetail) error {
	s.mu.Lock()
	s.subs = append(s.subs, details...)
	s.mu.Unlock()

	return s.Write(ctx, WsRequest[WsSubscribeDetail]{Op: "subscribe", Args: details})
}

// replay runs on every connect: login first on private sessions, then every
// recorded subscription. On the initial connect no subscriptions are
// recorded yet, so a private session only sends its login there and a
// public session sends nothing.
func (s *Stream) replay() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if s.signer != nil {
		if err := s.Login(ctx); err != nil {
			s.logger.Error("login replay failed", "error", err)
			return
		}
		// The ack is consumed by whoever reads the stream (AwaitLogin on
		// the initial connect, the watcher afterwards); give the venue a moment
		// before subscribing, as unauthenticated subscriptions are rejected.
		time.Sleep(100 * time.Millisecond)
	}

	s.mu.Lock()
	subs := append([]WsSubscribeDetail(nil), s.subs...)
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	if err := s.Write(ctx, WsRequest[WsSubscribeDetail]{Op: "subscribe", Args: subs}); err != nil {
		s.logger.Error("subscription replay failed", "error", err)
	}
}

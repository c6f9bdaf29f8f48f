package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// WebSocketConfig configures a WebSocketSource.
type WebSocketConfig struct {
	URL              string
	Token            string
	ShardCount       int
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	// MaxReconnects stops the source after this many consecutive failed
	// dials. Zero retries forever.
	MaxReconnects uint64
	// TLSConfig overrides the dialer's TLS settings for wss:// URLs.
	TLSConfig *tls.Config
}

// WebSocketSource reads frames from a websocket connection and reconnects
// with exponential backoff when the connection is lost. Every loss is
// reported to the sink as a DISCONNECTED envelope for each shard, so the
// dispatcher puts every shard back into hydration.
type WebSocketSource struct {
	cfg     WebSocketConfig
	codec   *Codec
	dialer  *websocket.Dialer
	onError DecodeErrorFunc
	logger  logger.Logger
}

// NewWebSocketSource creates a source. Nothing is dialed until Run.
func NewWebSocketSource(cfg WebSocketConfig, codec *Codec, onError DecodeErrorFunc, log logger.Logger) *WebSocketSource {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = time.Minute
	}
	if log == nil {
		log = logger.Default()
	}
	return &WebSocketSource{
		cfg:   cfg,
		codec: codec,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  cfg.TLSConfig,
		},
		onError: onError,
		logger:  log.With("component", "websocket"),
	}
}

// Run implements Source. It returns nil when ctx is canceled, the sink's
// error if the sink fails, or the last dial error once MaxReconnects is
// exhausted.
func (s *WebSocketSource) Run(ctx context.Context, sink Sink) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.ReconnectMin
	exp.MaxInterval = s.cfg.ReconnectMax
	exp.MaxElapsedTime = 0
	var b backoff.BackOff = exp
	if s.cfg.MaxReconnects > 0 {
		b = backoff.WithMaxRetries(exp, s.cfg.MaxReconnects)
	}
	b = backoff.WithContext(b, ctx)

	for {
		conn, err := s.dial(ctx)
		if err == nil {
			b.Reset()
			err = s.readLoop(ctx, conn, sink)
			var sinkErr *sinkError
			if errors.As(err, &sinkErr) {
				return sinkErr.err
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("gateway connection lost", "error", err)
			if err := s.disconnectAll(ctx, sink, err.Error()); err != nil {
				return err
			}
		} else {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("gateway dial failed", "error", err)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("gateway: giving up reconnecting: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (s *WebSocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.cfg.Token != "" {
		header.Set("Authorization", "Bot "+s.cfg.Token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("gateway connected", "url", s.cfg.URL)
	return conn, nil
}

type sinkError struct{ err error }

func (e *sinkError) Error() string { return e.err.Error() }

func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn, sink Sink) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := s.codec.Decode(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable frame", "error", err)
			if s.onError != nil {
				s.onError(raw, err)
			}
			continue
		}
		if err := sink(ctx, env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &sinkError{err: err}
		}
	}
}

func (s *WebSocketSource) disconnectAll(ctx context.Context, sink Sink, reason string) error {
	now := time.Now()
	for i := 0; i < s.cfg.ShardCount; i++ {
		env := domain.Envelope{
			ID:         newID(),
			Type:       domain.EventShardDisconnected,
			Shard:      domain.ShardID(i),
			Data:       domain.ShardDisconnectedData{Reason: reason},
			ReceivedAt: now,
		}
		if err := sink(ctx, env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

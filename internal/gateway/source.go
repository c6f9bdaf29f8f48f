package gateway

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// Sink receives decoded envelopes. Returning an error stops the source.
type Sink func(ctx context.Context, env domain.Envelope) error

// Source produces envelopes until its input ends or ctx is canceled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// DecodeErrorFunc is notified of frames that could not be decoded.
type DecodeErrorFunc func(raw []byte, err error)

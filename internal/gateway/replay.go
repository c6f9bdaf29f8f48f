package gateway

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

const maxFrameSize = 4 << 20

// ReplaySource reads newline-delimited frames, one per line. Blank lines
// and lines starting with # are skipped.
type ReplaySource struct {
	r       io.Reader
	codec   *Codec
	onError DecodeErrorFunc
	logger  logger.Logger
}

// NewReplaySource creates a source over r.
func NewReplaySource(r io.Reader, codec *Codec, onError DecodeErrorFunc, log logger.Logger) *ReplaySource {
	if log == nil {
		log = logger.Default()
	}
	return &ReplaySource{r: r, codec: codec, onError: onError, logger: log.With("component", "replay")}
}

// OpenReplayFile creates a source over the file at path. The file is
// closed when Run returns.
func OpenReplayFile(path string, codec *Codec, onError DecodeErrorFunc, log logger.Logger) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	return NewReplaySource(f, codec, onError, log), nil
}

// Run implements Source. It returns nil at end of input.
func (s *ReplaySource) Run(ctx context.Context, sink Sink) error {
	if c, ok := s.r.(io.Closer); ok {
		defer c.Close()
	}

	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 64<<10), maxFrameSize)

	line, delivered := 0, 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		env, err := s.codec.Decode(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable frame", "line", line, "error", err)
			if s.onError != nil {
				s.onError(raw, err)
			}
			continue
		}
		if err := sink(ctx, env); err != nil {
			return err
		}
		delivered++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read replay input: %w", err)
	}

	s.logger.Info("replay finished", "lines", line, "delivered", delivered)
	return nil
}

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// Source yields frames in stream order.
type Source interface {
	// Next blocks until a frame is available. It returns io.EOF at the end of
	// the stream and the context error when ctx is done.
	Next(ctx context.Context) (posture.Frame, error)
	Close() error
}

var errUnknownType = errors.New("unknown source type")

// Open builds the source described by cfg.
func Open(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case config.SourceJSONL, "":
		return OpenJSONLines(ctx, cfg.Path)
	case config.SourceMQTT:
		return NewMQTT(ctx, cfg.MQTT)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownType, cfg.Type)
	}
}

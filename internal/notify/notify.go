// Package notify publishes completed advisories to NATS so other systems
// (dashboards, dispatch tooling) can follow them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"preflight/internal/advisor"
)

// SubjectPrefix is prepended to every advisory subject.
const SubjectPrefix = "preflight.advisory"

// Publisher sends advisory reports somewhere.
type Publisher interface {
	Publish(ctx context.Context, r advisor.Report) error
	Close()
}

// Subject returns the subject for an origin/destination pair, e.g.
// preflight.advisory.SBSP.SBRJ. Missing codes become "_".
func Subject(origin, dest string) string {
	return SubjectPrefix + "." + token(origin) + "." + token(dest)
}

func token(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || strings.ContainsAny(s, ".*> \t") {
		return "_"
	}
	return s
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes report JSON on Subject(origin, dest).
type NATSPublisher struct {
	conn   Conn
	logger *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("preflight"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisher(nc, logger), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Publish sends the report and waits for the server to acknowledge the
// flush, bounded by ctx.
func (p *NATSPublisher) Publish(ctx context.Context, r advisor.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	subj := Subject(r.Origin, r.Destination)
	if err := p.conn.Publish(subj, data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subj, err)
	}
	p.logger.Debug("advisory published", slog.String("subject", subj), slog.Int("bytes", len(data)))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain", slog.Any("error", err))
	}
}

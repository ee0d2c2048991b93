// Package notify publishes build completion events so other systems (CI
// dashboards, chat bridges) can react to finished documents without polling
// the output directory.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/autodoc/internal/manifest"
)

// Publisher emits one event per completed build run.
type Publisher interface {
	PublishBuild(m *manifest.BuildManifest) error
	Close()
}

// NoopPublisher is used when no event stream is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBuild(*manifest.BuildManifest) error { return nil }
func (NoopPublisher) Close()                                     {}

// NATSPublisher publishes manifests as JSON messages on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to a NATS server. Connection failure is an error
// at startup rather than at publish time, so a misconfigured URL surfaces
// immediately.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("autodoc"))
	if err != nil {
		return nil, fmt.Errorf("connect to event stream: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// PublishBuild implements Publisher.
func (p *NATSPublisher) PublishBuild(m *manifest.BuildManifest) error {
	data, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	p.logger.Debug("Published build event", "subject", p.subject, "build_id", m.ID)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Event stream drain failed", "error", err)
	}
}

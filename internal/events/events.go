// Package events announces site-wide changes on NATS JetStream so storefront
// renderers and caches can react.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"storefront/cms/internal/logfields"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectPresetActivated  = "site.preset.activated"
	SubjectPresetRolledBack = "site.preset.rolledback"
	SubjectPageSaved        = "page.saved"
	SubjectPageDeleted      = "page.deleted"
	SubjectSectionSaved     = "section.saved"
)

// Event is the envelope published for every change.
type Event struct {
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurredAt"`
	Actor      string         `json:"actor,omitempty"`
	PresetID   string         `json:"presetId,omitempty"`
	PageID     string         `json:"pageId,omitempty"`
	SectionID  string         `json:"sectionId,omitempty"`
	Revision   int64          `json:"revision,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// JetStreamPublisher publishes events to a stream covering prefix.>.
type JetStreamPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewJetStreamPublisher connects to url and ensures a stream named
// streamName captures every subject under prefix.
func NewJetStreamPublisher(ctx context.Context, url, prefix, streamName string, logger *slog.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("storefront-cms"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(setupCtx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "Storefront content and site settings changes",
		Subjects:    []string{prefix + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", streamName, err)
	}

	logger.Info("nats publisher initialized", slog.String("url", url), slog.String("stream", streamName))
	return newJetStreamPublisher(conn, js, prefix, logger), nil
}

func newJetStreamPublisher(conn *nats.Conn, js jetstream.JetStream, prefix string, logger *slog.Logger) *JetStreamPublisher {
	return &JetStreamPublisher{
		conn:   conn,
		js:     js,
		prefix: prefix,
		logger: logger.With(slog.String("component", "events")),
		now:    time.Now,
	}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	subject := p.subject(evt.Subject)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", slog.String("subject", subject), logfields.PresetID(evt.PresetID), logfields.PageID(evt.PageID))
	return nil
}

func (p *JetStreamPublisher) subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

func (p *JetStreamPublisher) Close() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
			return fmt.Errorf("drain nats: %w", err)
		}
	}
	return nil
}

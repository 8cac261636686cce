package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mudassar864/yaopets-sub001/internal/events"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

// EventPublisher pushes interaction events onto the bus for notification
// fan-out. Publishing is best effort and never blocks a store write.
type EventPublisher interface {
	PublishPostLiked(event events.PostLikedEvent)
	PublishPostSaved(event events.PostLikedEvent)
	PublishPostCommented(event events.PostCommentedEvent)
	PublishCommentLiked(event events.CommentLikedEvent)
	Close()
}

type natsPublisher struct {
	conn *nats.Conn
	log  *logger.Logger
}

// Config holds NATS connection settings
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	ClientID      string
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(cfg Config, log *logger.Logger) (EventPublisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", conn.ConnectedUrl()).Info("Connected to NATS")
	return &natsPublisher{conn: conn, log: log}, nil
}

func (p *natsPublisher) PublishPostLiked(event events.PostLikedEvent) {
	p.publish(events.SubjectPostLiked, event)
}

func (p *natsPublisher) PublishPostSaved(event events.PostLikedEvent) {
	p.publish(events.SubjectPostSaved, event)
}

func (p *natsPublisher) PublishPostCommented(event events.PostCommentedEvent) {
	p.publish(events.SubjectPostCommented, event)
}

func (p *natsPublisher) PublishCommentLiked(event events.CommentLikedEvent) {
	p.publish(events.SubjectCommentLiked, event)
}

func (p *natsPublisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// NopPublisher discards all events; used when the bus is not configured
type NopPublisher struct{}

func (NopPublisher) PublishPostLiked(events.PostLikedEvent)        {}
func (NopPublisher) PublishPostSaved(events.PostLikedEvent)        {}
func (NopPublisher) PublishPostCommented(events.PostCommentedEvent) {}
func (NopPublisher) PublishCommentLiked(events.CommentLikedEvent)  {}
func (NopPublisher) Close()                                        {}

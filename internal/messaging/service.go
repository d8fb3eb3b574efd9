package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-crm/meridian-core/internal/infrastructure/config"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/mqtt"
)

// Domain errors for the messaging package, checked with errors.Is().
var (
	// ErrTemplateNotFound is returned when a template ID has no configured body.
	ErrTemplateNotFound = errors.New("messaging: template not found")

	// ErrNoChannel is returned when no channel is given and none is configured.
	ErrNoChannel = errors.New("messaging: no delivery channel")
)

// Publisher abstracts the MQTT publish operation the service needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger abstracts the logging operations the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// outboundMessage is the wire format channel bridges consume.
type outboundMessage struct {
	ContactID  string `json:"contact_id"`
	Channel    string `json:"channel"`
	TemplateID string `json:"template_id"`
	Body       string `json:"body"`
	SentAt     string `json:"sent_at"`
}

// Service renders configured templates and hands messages to channel bridges.
type Service struct {
	publisher      Publisher
	templates      map[string]string
	defaultChannel string
	topics         mqtt.Topics
	logger         Logger
}

// NewService creates a messaging service from the messaging configuration.
func NewService(publisher Publisher, cfg config.MessagingConfig, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		publisher:      publisher,
		templates:      cfg.Templates,
		defaultChannel: cfg.DefaultChannel,
		logger:         logger,
	}
}

// Send publishes a rendered message on the default channel.
func (s *Service) Send(ctx context.Context, contactID, templateID string, data map[string]any) error {
	if s.defaultChannel == "" {
		return ErrNoChannel
	}
	return s.SendExternal(ctx, s.defaultChannel, contactID, templateID, data)
}

// SendExternal publishes a rendered message on an explicit channel.
func (s *Service) SendExternal(ctx context.Context, channel, contactID, templateID string, data map[string]any) error {
	if channel == "" {
		return ErrNoChannel
	}

	body, err := s.render(templateID, data)
	if err != nil {
		return err
	}

	msg := outboundMessage{
		ContactID:  contactID,
		Channel:    channel,
		TemplateID: templateID,
		Body:       body,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	topic := s.topics.Outbound(channel, contactID)
	if err := s.publisher.Publish(topic, payload, 1, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	s.logger.Debug("outbound message published",
		"contact_id", contactID,
		"channel", channel,
		"template_id", templateID)
	return nil
}

// render substitutes {{field}} placeholders in the template body with
// values from the event payload. Placeholders with no matching field are
// left intact so a bridge operator can spot the gap.
func (s *Service) render(templateID string, data map[string]any) (string, error) {
	body, ok := s.templates[templateID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}

	for key, value := range data {
		placeholder := "{{" + key + "}}"
		if strings.Contains(body, placeholder) {
			body = strings.ReplaceAll(body, placeholder, fmt.Sprintf("%v", value))
		}
	}
	return body, nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EventBus is the subscription interface the intake needs from the
// message fabric.
type EventBus interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// TriggerService is the event intake: it subscribes to CRM event topics,
// evaluates each incoming event against the active rules for its trigger
// type, and fires the engine for every match.
//
// Matching happens here, at the entry boundary; the engine itself assumes
// a rule is fired because it matched.
type TriggerService struct {
	registry *Registry
	engine   *Engine
	bus      EventBus
	topic    string
	logger   Logger
}

// NewTriggerService creates the event intake.
//
// topicPattern is the wildcard subscription covering all CRM event topics
// (e.g. "meridian/events/+"); the trigger type is taken from the last
// topic segment.
func NewTriggerService(registry *Registry, engine *Engine, bus EventBus, topicPattern string, logger Logger) *TriggerService {
	if logger == nil {
		logger = noopLogger{}
	}
	return &TriggerService{
		registry: registry,
		engine:   engine,
		bus:      bus,
		topic:    topicPattern,
		logger:   logger,
	}
}

// Start subscribes to the event topics. Call once on application startup.
func (s *TriggerService) Start() error {
	if err := s.bus.Subscribe(s.topic, 1, s.handleEvent); err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	s.logger.Info("event intake started", "topic", s.topic)
	return nil
}

// handleEvent processes one incoming CRM event.
func (s *TriggerService) handleEvent(topic string, payload []byte) error {
	triggerType := TriggerType(topic[strings.LastIndex(topic, "/")+1:])
	if _, ok := validTriggerTypes[triggerType]; !ok {
		return fmt.Errorf("%w: topic %q", ErrUnknownTriggerType, topic)
	}

	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decoding event payload: %w", err)
	}

	ctx := context.Background()
	candidates, err := s.registry.ListByTrigger(ctx, triggerType, true)
	if err != nil {
		return fmt.Errorf("listing rules for %s: %w", triggerType, err)
	}

	fired := 0
	for _, a := range candidates {
		if !Matches(triggerType, a.TriggerConditions, event) {
			continue
		}
		fired++

		// Each matching rule runs in its own goroutine so a slow action
		// chain cannot stall intake of the next event.
		go func(automationID string) {
			if _, execErr := s.engine.Execute(context.Background(), automationID, event); execErr != nil {
				s.logger.Warn("triggered execution failed",
					"automation_id", automationID,
					"trigger", triggerType,
					"error", execErr,
				)
			}
		}(a.ID)
	}

	s.logger.Debug("event processed",
		"trigger", triggerType,
		"candidates", len(candidates),
		"fired", fired,
	)
	return nil
}

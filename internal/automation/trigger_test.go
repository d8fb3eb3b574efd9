package automation

import (
	"encoding/json"
	"testing"
	"time"
)

// mockEventBus captures the subscription so tests can inject events.
type mockEventBus struct {
	topic   string
	handler func(topic string, payload []byte) error
}

func (m *mockEventBus) Subscribe(topic string, _ byte, handler func(topic string, payload []byte) error) error {
	m.topic = topic
	m.handler = handler
	return nil
}

func (m *mockEventBus) emit(t *testing.T, topic string, event map[string]any) error {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshalling event: %v", err)
	}
	return m.handler(topic, payload)
}

func setupTrigger(t *testing.T) (*TriggerService, *mockEventBus, *engineFixture) {
	t.Helper()

	f := setupTestEngine(t)
	bus := &mockEventBus{}
	svc := NewTriggerService(f.registry, f.engine, bus, "meridian/events/+", noopLogger{})
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return svc, bus, f
}

// waitFor polls until the condition holds or the deadline passes.
// Matching rules execute in goroutines, so effects land asynchronously.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestTriggerService_FiresMatchingRule(t *testing.T) {
	_, bus, f := setupTrigger(t)

	a := testAutomation("a-1", "Bienvenida")
	a.TriggerConditions = map[string]any{"status": "INTERESADO"}
	f.seed(t, a)

	err := bus.emit(t, "meridian/events/contact-created", map[string]any{
		ContactIDKey: "c-1",
		"status":     "INTERESADO",
	})
	if err != nil {
		t.Fatalf("handleEvent: %v", err)
	}

	waitFor(t, func() bool {
		return len(f.crm.tags["c-1"]) == 1
	})
}

func TestTriggerService_SkipsNonMatchingConditions(t *testing.T) {
	_, bus, f := setupTrigger(t)

	a := testAutomation("a-1", "Solo interesados")
	a.TriggerConditions = map[string]any{"status": "INTERESADO"}
	f.seed(t, a)

	err := bus.emit(t, "meridian/events/contact-created", map[string]any{
		ContactIDKey: "c-1",
		"status":     "NUEVO",
	})
	if err != nil {
		t.Fatalf("handleEvent: %v", err)
	}

	// Give any stray goroutine a moment, then confirm nothing fired.
	time.Sleep(50 * time.Millisecond)
	if len(f.repo.executions) != 0 {
		t.Error("non-matching event fired the rule")
	}
}

func TestTriggerService_IgnoresInactiveRules(t *testing.T) {
	_, bus, f := setupTrigger(t)

	a := testAutomation("a-1", "Apagada")
	a.IsActive = false
	f.seed(t, a)

	if err := bus.emit(t, "meridian/events/contact-created", contactPayload("c-1")); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if len(f.repo.executions) != 0 {
		t.Error("inactive rule was dispatched by the intake")
	}
}

func TestTriggerService_RejectsUnknownTrigger(t *testing.T) {
	_, bus, _ := setupTrigger(t)

	err := bus.emit(t, "meridian/events/solar-eclipse", map[string]any{})
	if err == nil {
		t.Error("expected error for unknown trigger type")
	}
}

func TestTriggerService_RejectsMalformedPayload(t *testing.T) {
	_, bus, _ := setupTrigger(t)

	if err := bus.handler("meridian/events/contact-created", []byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestTriggerService_SubscribesToPattern(t *testing.T) {
	_, bus, _ := setupTrigger(t)

	if bus.topic != "meridian/events/+" {
		t.Errorf("subscribed to %q, want meridian/events/+", bus.topic)
	}
}

func TestTriggerService_MultipleMatches(t *testing.T) {
	_, bus, f := setupTrigger(t)

	first := testAutomation("a-1", "Primera")
	second := testAutomation("a-2", "Segunda")
	second.Actions = []Action{
		{ID: "act-1", ActionType: ActionUpdateStatus, Parameters: map[string]any{"status": "INTERESADO"}, Order: 1},
	}
	f.repo.automations["a-1"] = first
	f.seed(t, second)

	if err := bus.emit(t, "meridian/events/contact-created", contactPayload("c-1")); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}

	waitFor(t, func() bool {
		f.repo.mu.RLock()
		defer f.repo.mu.RUnlock()
		return len(f.repo.executions) == 2
	})
}

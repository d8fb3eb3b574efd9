package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MQTTClient is the interface for publishing engine notifications.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// MetricsRecorder is the interface for recording execution metrics in the
// time-series store.
type MetricsRecorder interface {
	WriteExecution(automationID, triggerType, status string, durationMs int64, actionsRun, actionsFailed int)
	WriteActionMetric(automationID, actionType string, success bool, durationMs int64)
}

// Engine orchestrates automation execution.
//
// It loads the rule from the registry, opens an execution record, walks
// the actions strictly in order (handing delayed actions to the
// scheduler), and closes the record with the per-action outcome log.
//
// Per-action failures are logged and swallowed; only configuration
// failures (rule missing, inactive, unknown action type) and recording
// failures produce a failed result.
//
// Thread Safety: Execute is safe for concurrent use. Two concurrent
// firings of the same rule may interleave their side effects on the same
// contact; no rule-wide lock is held.
type Engine struct {
	registry   *Registry
	repo       Repository
	dispatcher *Dispatcher
	scheduler  *Scheduler
	clock      Clock
	logger     Logger

	// Optional collaborators, nil when not wired
	hub        WSHub
	metrics    MetricsRecorder
	notifier   MQTTClient
	firedTopic func(automationID string) string
}

// NewEngine creates an automation engine.
//
// Parameters:
//   - registry: Automation registry for loading rule definitions
//   - repo: Repository for persisting execution records
//   - dispatcher: Per-action-type side-effect executor
//   - scheduler: Deferred action handling
//   - clock: Time source (nil defaults to the system clock)
//   - logger: Logger instance (nil defaults to noop)
func NewEngine(registry *Registry, repo Repository, dispatcher *Dispatcher, scheduler *Scheduler, clock Clock, logger Logger) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry:   registry,
		repo:       repo,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		clock:      clock,
		logger:     logger,
	}
}

// SetHub wires a WebSocket hub for execution broadcasts.
func (e *Engine) SetHub(hub WSHub) { e.hub = hub }

// SetMetrics wires a metrics recorder for execution telemetry.
func (e *Engine) SetMetrics(m MetricsRecorder) { e.metrics = m }

// SetNotifier wires an MQTT client for fired-event notifications. The
// topic builder maps an automation ID to its notification topic, keeping
// topic naming with the transport layer rather than in here.
func (e *Engine) SetNotifier(n MQTTClient, topicFor func(automationID string) string) {
	e.notifier = n
	e.firedTopic = topicFor
}

// Execute fires an automation for one trigger event.
//
// The returned error is non-nil exactly when the result's Success flag is
// false: configuration failures (ErrNotFound, ErrInactive,
// ErrUnknownActionType) and recording failures. Individual action
// failures appear only in the result's action log.
func (e *Engine) Execute(ctx context.Context, automationID string, payload map[string]any) (ExecutionResult, error) { //nolint:gocognit // dispatch: validates, walks actions, records execution
	start := e.clock.Now()
	result := ExecutionResult{AutomationID: automationID}

	// Load and validate configuration before any record exists. Failures
	// here leave no execution row behind.
	a, err := e.registry.Get(ctx, automationID)
	if err != nil {
		return e.fail(result, start, err)
	}
	if !a.IsActive {
		return e.fail(result, start, ErrInactive)
	}
	for _, action := range a.Actions {
		if _, ok := validActionTypes[action.ActionType]; !ok {
			return e.fail(result, start, fmt.Errorf("%w: %q", ErrUnknownActionType, action.ActionType))
		}
	}
	SortActions(a.Actions)

	// Open the execution record.
	exec := &Execution{
		ID:             GenerateID(),
		AutomationID:   a.ID,
		TriggerPayload: payload,
		Status:         StatusRunning,
		StartedAt:      start,
	}
	if createErr := e.repo.CreateExecution(ctx, exec); createErr != nil {
		return e.fail(result, start, fmt.Errorf("opening execution record: %w", createErr))
	}
	result.ExecutionID = exec.ID

	e.logger.Info("automation execution started",
		"automation_id", a.ID,
		"automation_name", a.Name,
		"execution_id", exec.ID,
		"trigger", a.TriggerType,
		"actions", len(a.Actions),
	)

	// Walk actions strictly in order. A failed action is logged and the
	// walk continues; a delayed action is scheduled and never blocks the
	// actions after it.
	entries := make([]ActionLogEntry, 0, len(a.Actions))
	failed := 0
	for _, action := range a.Actions {
		entry := ActionLogEntry{
			ActionID:   action.ID,
			ActionType: action.ActionType,
			Order:      action.Order,
			Timestamp:  e.clock.Now(),
		}

		if action.DelayMinutes > 0 {
			executeAt, deferErr := e.scheduler.Defer(ctx, a.ID, exec.ID, action, payload)
			if deferErr != nil {
				entry.Status = ActionStatusFailed
				msg := deferErr.Error()
				entry.Error = &msg
				failed++
			} else {
				entry.Status = ActionStatusCompleted
				entry.Result = map[string]any{
					"scheduled":  true,
					"execute_at": executeAt.UTC().Format(time.RFC3339),
				}
			}
			entries = append(entries, entry)
			continue
		}

		actionStart := e.clock.Now()
		actionResult, dispatchErr := e.dispatcher.Dispatch(ctx, action, payload)
		if e.metrics != nil {
			e.metrics.WriteActionMetric(a.ID, string(action.ActionType),
				dispatchErr == nil, e.clock.Now().Sub(actionStart).Milliseconds())
		}
		if dispatchErr != nil {
			entry.Status = ActionStatusFailed
			msg := dispatchErr.Error()
			entry.Error = &msg
			failed++
			e.logger.Warn("automation action failed",
				"automation_id", a.ID,
				"execution_id", exec.ID,
				"action_type", action.ActionType,
				"order", action.Order,
				"error", dispatchErr,
			)
		} else {
			entry.Status = ActionStatusCompleted
			entry.Result = actionResult
		}
		entries = append(entries, entry)
	}

	// Close the record. Per-action failures do not affect its terminal
	// status; it completes once every action was attempted.
	finish := e.clock.Now()
	duration := finish.Sub(start)
	durationMS := int(duration.Milliseconds())

	exec.Status = StatusCompleted
	exec.CompletedAt = &finish
	exec.ActionsLog = entries
	exec.DurationMS = &durationMS

	result.ActionsLog = entries
	result.Duration = duration

	if updateErr := e.repo.UpdateExecution(ctx, exec); updateErr != nil {
		e.logger.Error("failed to close execution record",
			"execution_id", exec.ID,
			"error", updateErr,
		)
		result.Error = fmt.Sprintf("closing execution record: %v", updateErr)
		return result, fmt.Errorf("closing execution record: %w", updateErr)
	}

	result.Success = true

	e.logger.Info("automation execution complete",
		"automation_id", a.ID,
		"execution_id", exec.ID,
		"actions_run", len(entries),
		"actions_failed", failed,
		"duration_ms", durationMS,
	)

	e.report(a, exec, failed)

	return result, nil
}

// fail finalises a result for a configuration or recording failure.
func (e *Engine) fail(result ExecutionResult, start time.Time, err error) (ExecutionResult, error) {
	result.Success = false
	result.Error = err.Error()
	result.Duration = e.clock.Now().Sub(start)

	e.logger.Warn("automation execution rejected",
		"automation_id", result.AutomationID,
		"error", err,
	)
	return result, err
}

// report emits the optional post-execution signals: metrics, WebSocket
// broadcast, and the MQTT fired notification.
func (e *Engine) report(a *Automation, exec *Execution, failed int) {
	durationMS := int64(0)
	if exec.DurationMS != nil {
		durationMS = int64(*exec.DurationMS)
	}

	if e.metrics != nil {
		e.metrics.WriteExecution(a.ID, string(a.TriggerType), string(exec.Status),
			durationMS, len(exec.ActionsLog), failed)
	}

	if e.hub != nil {
		e.hub.Broadcast("automation.executed", map[string]any{
			"automation_id":   a.ID,
			"automation_name": a.Name,
			"execution_id":    exec.ID,
			"status":          string(exec.Status),
			"actions_failed":  failed,
			"duration_ms":     durationMS,
		})
	}

	if e.notifier != nil && e.firedTopic != nil {
		payload, err := json.Marshal(map[string]any{
			"automation_id": a.ID,
			"execution_id":  exec.ID,
			"status":        string(exec.Status),
			"trigger_type":  string(a.TriggerType),
			"duration_ms":   durationMS,
		})
		if err != nil {
			return
		}
		if pubErr := e.notifier.Publish(e.firedTopic(a.ID), payload, 1, false); pubErr != nil {
			e.logger.Warn("failed to publish fired notification",
				"automation_id", a.ID,
				"error", pubErr,
			)
		}
	}
}

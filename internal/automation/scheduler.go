package automation

import (
	"context"
	"time"
)

// Scheduler defers actions with a non-zero delay and later runs them.
//
// Deferred actions are persisted as scheduled_actions rows rather than
// held in memory, so pending work survives a process restart. A
// background poll loop claims due rows and dispatches them; claiming
// happens in a transaction, so overlapping pollers never double-execute
// an action.
type Scheduler struct {
	repo       Repository
	dispatcher *Dispatcher
	clock      Clock
	logger     Logger

	pollInterval time.Duration
	batchSize    int
}

// NewScheduler creates a scheduler.
//
// pollInterval controls how often due actions are checked (zero or
// negative falls back to 30s); batchSize bounds how many are claimed per
// poll (zero or negative falls back to 20).
func NewScheduler(repo Repository, dispatcher *Dispatcher, clock Clock, pollInterval time.Duration, batchSize int) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Scheduler{
		repo:         repo,
		dispatcher:   dispatcher,
		clock:        clock,
		logger:       noopLogger{},
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Defer records a delayed action for future execution and returns the
// computed execution time (now + the action's delay).
//
// Defer only persists the commitment; the poll loop performs the action
// when it comes due.
func (s *Scheduler) Defer(ctx context.Context, automationID, executionID string, action Action, payload map[string]any) (time.Time, error) {
	executeAt := s.clock.Now().Add(time.Duration(action.DelayMinutes) * time.Minute)

	sa := &ScheduledAction{
		ID:             GenerateID(),
		AutomationID:   automationID,
		ExecutionID:    executionID,
		Action:         action,
		TriggerPayload: payload,
		ExecuteAt:      executeAt,
		Status:         ScheduledPending,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.CreateScheduledAction(ctx, sa); err != nil {
		return time.Time{}, err
	}

	s.logger.Debug("action deferred",
		"automation_id", automationID,
		"execution_id", executionID,
		"action_type", action.ActionType,
		"execute_at", executeAt,
	)
	return executeAt, nil
}

// Run polls for due actions until the context is cancelled.
// This should be started as a goroutine on application startup.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		"poll_interval", s.pollInterval,
		"batch_size", s.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue claims due actions and dispatches them one at a time.
func (s *Scheduler) runDue(ctx context.Context) {
	due, err := s.repo.ClaimDueScheduledActions(ctx, s.clock.Now(), s.batchSize)
	if err != nil {
		s.logger.Error("failed to claim due actions", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug("running due actions", "count", len(due))

	for _, sa := range due {
		result, dispatchErr := s.dispatcher.Dispatch(ctx, sa.Action, sa.TriggerPayload)
		if dispatchErr != nil {
			s.logger.Warn("scheduled action failed",
				"scheduled_id", sa.ID,
				"automation_id", sa.AutomationID,
				"action_type", sa.Action.ActionType,
				"error", dispatchErr,
			)
		}

		if completeErr := s.repo.CompleteScheduledAction(ctx, sa.ID, result, dispatchErr); completeErr != nil {
			s.logger.Error("failed to record scheduled action outcome",
				"scheduled_id", sa.ID,
				"error", completeErr,
			)
		}
	}
}

package automation

import (
	"context"
	"testing"
	"time"
)

func seedExecution(repo *mockRepository, id string, startedAt time.Time, status ExecutionStatus) {
	repo.executions[id] = &Execution{
		ID:           id,
		AutomationID: "a-1",
		Status:       status,
		StartedAt:    startedAt,
	}
}

func TestAggregator_GetStats_EmptyWindow(t *testing.T) {
	repo := newMockRepository()
	clock := newFixedClock(testStart)
	agg := NewAggregator(repo, clock)

	stats, err := agg.GetStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v, want 0 for empty window", stats.SuccessRate)
	}
	if stats.TotalExecutions != 0 || stats.RecentExecutions != 0 {
		t.Error("expected zero execution counts")
	}
}

func TestAggregator_GetStats_SuccessRate(t *testing.T) {
	repo := newMockRepository()
	clock := newFixedClock(testStart)
	agg := NewAggregator(repo, clock)

	// 3 completed + 1 failed inside the 7-day window -> 75.0.
	inWindow := testStart.Add(-24 * time.Hour)
	seedExecution(repo, "e-1", inWindow, StatusCompleted)
	seedExecution(repo, "e-2", inWindow, StatusCompleted)
	seedExecution(repo, "e-3", inWindow, StatusCompleted)
	seedExecution(repo, "e-4", inWindow, StatusFailed)

	// Outside the window; must not affect the rate.
	seedExecution(repo, "e-old", testStart.Add(-8*24*time.Hour), StatusFailed)

	stats, err := agg.GetStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.SuccessRate != 75.0 {
		t.Errorf("SuccessRate = %v, want 75.0", stats.SuccessRate)
	}
	if stats.RecentExecutions != 4 {
		t.Errorf("RecentExecutions = %d, want 4", stats.RecentExecutions)
	}
	if stats.TotalExecutions != 5 {
		t.Errorf("TotalExecutions = %d, want 5", stats.TotalExecutions)
	}
}

func TestAggregator_GetStats_RateRounding(t *testing.T) {
	repo := newMockRepository()
	clock := newFixedClock(testStart)
	agg := NewAggregator(repo, clock)

	// 2 of 3 completed -> 66.666... rounds to 66.7.
	inWindow := testStart.Add(-time.Hour)
	seedExecution(repo, "e-1", inWindow, StatusCompleted)
	seedExecution(repo, "e-2", inWindow, StatusCompleted)
	seedExecution(repo, "e-3", inWindow, StatusFailed)

	stats, err := agg.GetStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.SuccessRate != 66.7 {
		t.Errorf("SuccessRate = %v, want 66.7", stats.SuccessRate)
	}
}

func TestAggregator_GetStats_AutomationCounts(t *testing.T) {
	repo := newMockRepository()
	clock := newFixedClock(testStart)
	agg := NewAggregator(repo, clock)

	active := testAutomation("a-1", "Activa")
	inactive := testAutomation("a-2", "Inactiva")
	inactive.IsActive = false
	repo.automations["a-1"] = active
	repo.automations["a-2"] = inactive

	stats, err := agg.GetStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalAutomations != 2 {
		t.Errorf("TotalAutomations = %d, want 2", stats.TotalAutomations)
	}
	if stats.ActiveAutomations != 1 {
		t.Errorf("ActiveAutomations = %d, want 1", stats.ActiveAutomations)
	}
}

func TestAggregator_GetStats_CreatorFilter(t *testing.T) {
	repo := newMockRepository()
	clock := newFixedClock(testStart)
	agg := NewAggregator(repo, clock)

	laura := "agt-laura"
	carlos := "agt-carlos"

	mine := testAutomation("a-1", "Bienvenida")
	mine.CreatedBy = &laura
	other := testAutomation("a-2", "Recordatorio")
	other.CreatedBy = &carlos
	repo.automations["a-1"] = mine
	repo.automations["a-2"] = other

	inWindow := testStart.Add(-time.Hour)
	seedExecution(repo, "e-1", inWindow, StatusCompleted)
	seedExecution(repo, "e-2", inWindow, StatusFailed)
	repo.executions["e-other"] = &Execution{
		ID:           "e-other",
		AutomationID: "a-2",
		Status:       StatusCompleted,
		StartedAt:    inWindow,
	}

	stats, err := agg.GetStats(context.Background(), laura)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalAutomations != 1 {
		t.Errorf("TotalAutomations = %d, want 1", stats.TotalAutomations)
	}
	if stats.TotalExecutions != 2 {
		t.Errorf("TotalExecutions = %d, want 2", stats.TotalExecutions)
	}
	if stats.SuccessRate != 50.0 {
		t.Errorf("SuccessRate = %v, want 50.0", stats.SuccessRate)
	}
	if len(stats.RecentActivity) != 2 {
		t.Errorf("RecentActivity = %d entries, want 2", len(stats.RecentActivity))
	}

	// Unfiltered stats still cover everything.
	all, err := agg.GetStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if all.TotalAutomations != 2 || all.TotalExecutions != 3 {
		t.Errorf("unfiltered counts = %d/%d, want 2/3",
			all.TotalAutomations, all.TotalExecutions)
	}
}

package automation

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Stats window constants.
const (
	statsWindow         = 7 * 24 * time.Hour
	recentActivityLimit = 10
)

// Stats summarises the rule set and recent execution history.
type Stats struct {
	TotalAutomations  int         `json:"total_automations"`
	ActiveAutomations int         `json:"active_automations"`
	TotalExecutions   int         `json:"total_executions"`
	RecentExecutions  int         `json:"recent_executions"`
	SuccessRate       float64     `json:"success_rate"`
	RecentActivity    []Execution `json:"recent_activity"`
}

// Aggregator derives operational stats from the repository.
type Aggregator struct {
	repo  Repository
	clock Clock
}

// NewAggregator creates a stats aggregator.
func NewAggregator(repo Repository, clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock()
	}
	return &Aggregator{repo: repo, clock: clock}
}

// GetStats computes rule counts and the success rate over the last seven
// days. The rate is completed / total in the window as a percentage
// rounded to one decimal place; an empty window yields 0.
//
// A non-empty createdBy scopes every figure to automations created by
// that agent; an empty string covers the whole rule set.
func (g *Aggregator) GetStats(ctx context.Context, createdBy string) (*Stats, error) {
	total, active, err := g.repo.CountAutomations(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("counting automations: %w", err)
	}

	totalExecs, err := g.repo.CountExecutions(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("counting executions: %w", err)
	}

	since := g.clock.Now().Add(-statsWindow)
	windowTotal, windowCompleted, err := g.repo.CountExecutionsSince(ctx, since, createdBy)
	if err != nil {
		return nil, fmt.Errorf("counting window executions: %w", err)
	}

	successRate := 0.0
	if windowTotal > 0 {
		successRate = roundToOneDecimal(float64(windowCompleted) / float64(windowTotal) * 100)
	}

	recent, err := g.repo.ListRecentExecutions(ctx, recentActivityLimit, createdBy)
	if err != nil {
		return nil, fmt.Errorf("listing recent executions: %w", err)
	}

	return &Stats{
		TotalAutomations:  total,
		ActiveAutomations: active,
		TotalExecutions:   totalExecs,
		RecentExecutions:  windowTotal,
		SuccessRate:       successRate,
		RecentActivity:    recent,
	}, nil
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

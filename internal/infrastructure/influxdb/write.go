package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteExecution records an automation execution outcome.
//
// Tags are low-cardinality (automation ID, trigger type, status); the
// duration and action counts go in as fields. The write is non-blocking.
//
// Example:
//
//	client.WriteExecution("a-17", "contact-created", "completed", 42, 3, 0)
func (c *Client) WriteExecution(automationID, triggerType, status string, durationMs int64, actionsRun, actionsFailed int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_executions",
		map[string]string{
			"automation_id": automationID,
			"trigger_type":  triggerType,
			"status":        status,
		},
		map[string]interface{}{
			"duration_ms":    durationMs,
			"actions_run":    actionsRun,
			"actions_failed": actionsFailed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionMetric records a single action attempt within an execution.
//
// Used to track per-action-type failure rates across automations.
func (c *Client) WriteActionMetric(automationID, actionType string, success bool, durationMs int64) {
	if !c.IsConnected() {
		return
	}

	status := "success"
	if !success {
		status = "failed"
	}

	point := write.NewPoint(
		"automation_actions",
		map[string]string{
			"automation_id": automationID,
			"action_type":   actionType,
			"status":        status,
		},
		map[string]interface{}{
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

package automation

import "testing"

func TestMatches_EmptyConditions(t *testing.T) {
	if !Matches(TriggerContactCreated, nil, map[string]any{"status": "NUEVO"}) {
		t.Error("empty condition set must always match")
	}
	if !Matches(TriggerContactCreated, map[string]any{}, map[string]any{}) {
		t.Error("empty condition set must match an empty payload")
	}
}

func TestMatches_Equality(t *testing.T) {
	conditions := map[string]any{"status": "INTERESADO"}

	if !Matches(TriggerContactCreated, conditions, map[string]any{"status": "INTERESADO"}) {
		t.Error("equal status should match")
	}
	if Matches(TriggerContactCreated, conditions, map[string]any{"status": "NUEVO"}) {
		t.Error("different status should not match")
	}
	if Matches(TriggerContactCreated, conditions, map[string]any{"source": "web"}) {
		t.Error("configured field missing from payload should not match")
	}
}

func TestMatches_Conjunction(t *testing.T) {
	conditions := map[string]any{"status": "NUEVO", "source": "web"}

	if !Matches(TriggerContactCreated, conditions, map[string]any{"status": "NUEVO", "source": "web"}) {
		t.Error("all fields equal should match")
	}
	if Matches(TriggerContactCreated, conditions, map[string]any{"status": "NUEVO", "source": "referral"}) {
		t.Error("one differing field should fail the conjunction")
	}
}

func TestMatches_NumericThresholds(t *testing.T) {
	tests := []struct {
		name       string
		trigger    TriggerType
		conditions map[string]any
		payload    map[string]any
		want       bool
	}{
		{
			name:       "days overdue at threshold",
			trigger:    TriggerPaymentOverdue,
			conditions: map[string]any{"daysOverdue": 7},
			payload:    map[string]any{"daysOverdue": float64(7)},
			want:       true,
		},
		{
			name:       "days overdue above threshold",
			trigger:    TriggerPaymentOverdue,
			conditions: map[string]any{"daysOverdue": 7},
			payload:    map[string]any{"daysOverdue": float64(15)},
			want:       true,
		},
		{
			name:       "days overdue below threshold",
			trigger:    TriggerPaymentOverdue,
			conditions: map[string]any{"daysOverdue": 7},
			payload:    map[string]any{"daysOverdue": float64(3)},
			want:       false,
		},
		{
			name:       "amount threshold",
			trigger:    TriggerPaymentOverdue,
			conditions: map[string]any{"amount": 500.0},
			payload:    map[string]any{"amount": float64(1200)},
			want:       true,
		},
		{
			name:       "inactivity days",
			trigger:    TriggerNoActivity,
			conditions: map[string]any{"days": 30, "status": "CLIENTE"},
			payload:    map[string]any{"days": float64(45), "status": "CLIENTE"},
			want:       true,
		},
		{
			name:       "birthday lead time is an upper bound",
			trigger:    TriggerBirthday,
			conditions: map[string]any{"daysBefore": 7},
			payload:    map[string]any{"daysBefore": float64(3)},
			want:       true,
		},
		{
			name:       "birthday too far out",
			trigger:    TriggerBirthday,
			conditions: map[string]any{"daysBefore": 7},
			payload:    map[string]any{"daysBefore": float64(14)},
			want:       false,
		},
		{
			name:       "non-numeric payload for threshold field",
			trigger:    TriggerPaymentOverdue,
			conditions: map[string]any{"daysOverdue": 7},
			payload:    map[string]any{"daysOverdue": "soon"},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.trigger, tt.conditions, tt.payload); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_UnknownFieldsIgnored(t *testing.T) {
	conditions := map[string]any{"status": "NUEVO", "favouriteColour": "azul"}
	payload := map[string]any{"status": "NUEVO"}

	if !Matches(TriggerContactCreated, conditions, payload) {
		t.Error("unknown condition field must be ignored, not rejected")
	}
}

func TestMatches_CustomTriggerComparesEverything(t *testing.T) {
	conditions := map[string]any{"campaign": "verano-2026"}

	if !Matches(TriggerCustom, conditions, map[string]any{"campaign": "verano-2026"}) {
		t.Error("custom trigger should compare arbitrary fields")
	}
	if Matches(TriggerCustom, conditions, map[string]any{"campaign": "invierno"}) {
		t.Error("custom trigger mismatch should fail")
	}
}

func TestMatches_NumericTypeCoercion(t *testing.T) {
	// Conditions authored in Go carry ints; payloads decoded from JSON
	// carry float64. 30 must equal 30.0.
	conditions := map[string]any{"days": 30}
	payload := map[string]any{"days": float64(30)}

	if !Matches(TriggerNoActivity, conditions, payload) {
		t.Error("int condition and float64 payload should compare numerically")
	}
}

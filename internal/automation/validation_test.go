package automation

import (
	"errors"
	"strings"
	"testing"
)

func validTestAutomation() *Automation {
	return &Automation{
		ID:          "a-1",
		Name:        "Bienvenida",
		TriggerType: TriggerContactCreated,
		IsActive:    true,
		Actions: []Action{
			{ID: "act-1", ActionType: ActionAddTag, Parameters: map[string]any{"tags": []string{"nuevo"}}, Order: 1},
			{ID: "act-2", ActionType: ActionSendMessage, Parameters: map[string]any{"templateId": "welcome"}, Order: 2},
		},
	}
}

func TestValidateAutomation_Valid(t *testing.T) {
	if err := ValidateAutomation(validTestAutomation()); err != nil {
		t.Errorf("ValidateAutomation: %v", err)
	}
}

func TestValidateAutomation_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Automation)
		wantErr error
	}{
		{
			name:    "nil automation handled separately",
			mutate:  nil,
			wantErr: ErrInvalid,
		},
		{
			name:    "empty name",
			mutate:  func(a *Automation) { a.Name = "" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "whitespace name",
			mutate:  func(a *Automation) { a.Name = "   " },
			wantErr: ErrInvalidName,
		},
		{
			name:    "name too long",
			mutate:  func(a *Automation) { a.Name = strings.Repeat("x", maxNameLength+1) },
			wantErr: ErrInvalidName,
		},
		{
			name: "description too long",
			mutate: func(a *Automation) {
				long := strings.Repeat("x", maxDescriptionLen+1)
				a.Description = &long
			},
			wantErr: ErrInvalid,
		},
		{
			name:    "unknown trigger type",
			mutate:  func(a *Automation) { a.TriggerType = "moon-phase" },
			wantErr: ErrUnknownTriggerType,
		},
		{
			name:    "no actions",
			mutate:  func(a *Automation) { a.Actions = nil },
			wantErr: ErrNoActions,
		},
		{
			name: "unknown action type",
			mutate: func(a *Automation) {
				a.Actions[0].ActionType = "launch-rocket"
			},
			wantErr: ErrUnknownActionType,
		},
		{
			name: "zero order",
			mutate: func(a *Automation) {
				a.Actions[0].Order = 0
			},
			wantErr: ErrInvalidAction,
		},
		{
			name: "negative delay",
			mutate: func(a *Automation) {
				a.Actions[0].DelayMinutes = -5
			},
			wantErr: ErrInvalidAction,
		},
		{
			name: "delay beyond cap",
			mutate: func(a *Automation) {
				a.Actions[0].DelayMinutes = maxDelayMinutes + 1
			},
			wantErr: ErrInvalidAction,
		},
		{
			name: "duplicate order",
			mutate: func(a *Automation) {
				a.Actions[1].Order = a.Actions[0].Order
			},
			wantErr: ErrInvalidAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a *Automation
			if tt.mutate != nil {
				a = validTestAutomation()
				tt.mutate(a)
			}
			err := ValidateAutomation(a)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAction_MaxDelayAccepted(t *testing.T) {
	action := Action{ActionType: ActionSendMessage, DelayMinutes: maxDelayMinutes, Order: 1}
	if err := ValidateAction(action); err != nil {
		t.Errorf("ValidateAction at max delay: %v", err)
	}
}

func TestSortActions(t *testing.T) {
	actions := []Action{
		{ID: "c", Order: 3},
		{ID: "a", Order: 1},
		{ID: "b", Order: 2},
	}
	SortActions(actions)

	for i, want := range []string{"a", "b", "c"} {
		if actions[i].ID != want {
			t.Fatalf("actions[%d].ID = %q, want %q", i, actions[i].ID, want)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Error("GenerateID should produce unique non-empty IDs")
	}
}

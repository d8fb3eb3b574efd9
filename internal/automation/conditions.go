package automation

import "reflect"

// comparison selects how a configured condition value is checked against
// the event payload value.
type comparison int

const (
	cmpEqual comparison = iota
	cmpGTE              // payload value must be >= configured threshold
	cmpLTE              // payload value must be <= configured threshold
)

// conditionFields maps each trigger type to the condition keys it
// understands and how each key is compared. A nil map means every key is
// compared by equality (the custom trigger is open-ended).
var conditionFields = map[TriggerType]map[string]comparison{
	TriggerContactCreated: {
		"status":      cmpEqual,
		"source":      cmpEqual,
		"budgetRange": cmpEqual,
	},
	TriggerTripQuoteRequested: {
		"destination": cmpEqual,
		"budgetRange": cmpEqual,
		"travelers":   cmpGTE,
	},
	TriggerPaymentOverdue: {
		"daysOverdue": cmpGTE,
		"amount":      cmpGTE,
	},
	TriggerTripCompleted: {
		"destination": cmpEqual,
		"rating":      cmpGTE,
	},
	TriggerNoActivity: {
		"days":   cmpGTE,
		"status": cmpEqual,
	},
	TriggerSeasonalOpportunity: {
		"season":      cmpEqual,
		"destination": cmpEqual,
	},
	TriggerBirthday: {
		"daysBefore": cmpLTE,
	},
	TriggerCustom: nil,
}

// Matches decides whether an event payload satisfies a rule's stored
// conditions for the given trigger type.
//
// The match is a conjunction over only the configured fields: an empty
// condition set always matches. Condition keys the trigger type does not
// understand are ignored rather than rejected. A configured field missing
// from the payload fails the match.
func Matches(triggerType TriggerType, conditions, payload map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}

	known := conditionFields[triggerType]

	for key, want := range conditions {
		cmp := cmpEqual
		if known != nil {
			c, ok := known[key]
			if !ok {
				continue // unknown field for this trigger, no constraint
			}
			cmp = c
		}

		got, ok := payload[key]
		if !ok {
			return false
		}

		if !compareValues(cmp, want, got) {
			return false
		}
	}

	return true
}

// compareValues applies the comparison with want as the configured value
// and got as the payload value.
func compareValues(cmp comparison, want, got any) bool {
	wantN, wantIsNum := toFloat64(want)
	gotN, gotIsNum := toFloat64(got)

	switch cmp {
	case cmpGTE:
		return wantIsNum && gotIsNum && gotN >= wantN
	case cmpLTE:
		return wantIsNum && gotIsNum && gotN <= wantN
	default:
		if wantIsNum && gotIsNum {
			return gotN == wantN
		}
		return reflect.DeepEqual(want, got)
	}
}

// toFloat64 normalises the numeric types produced by JSON and YAML
// decoding so 30 and 30.0 compare equal.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

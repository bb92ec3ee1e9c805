package event

import "testing"

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		expected  bool
	}{
		{TypeExpenseSubmitted, true},
		{TypeStepDecided, true},
		{TypeExpenseStuck, true},
		{Type("bogus.event"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.expected {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	evt := New(TypeStepDecided, 42, 7, map[string]interface{}{"decision": "APPROVED"})

	if evt.ID == "" {
		t.Error("New() should generate an ID")
	}
	if evt.ExpenseID != 42 || evt.ActorID != 7 {
		t.Errorf("New() ids = (%d, %d), want (42, 7)", evt.ExpenseID, evt.ActorID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("New() should set a timestamp")
	}
	if got := evt.GetPayloadString("decision"); got != "APPROVED" {
		t.Errorf("GetPayloadString() = %q, want %q", got, "APPROVED")
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
}

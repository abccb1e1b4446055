package model

import "testing"

func TestTaskStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected bool
	}{
		{TaskStatusQueued, false},
		{TaskStatusRunning, true},
		{TaskStatusFinished, false},
		{TaskStatusFailed, false},
		{TaskStatusCancelled, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsActive(); got != tt.expected {
			t.Errorf("IsActive() for %s = %v, expected %v", tt.status, got, tt.expected)
		}
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected bool
	}{
		{TaskStatusQueued, false},
		{TaskStatusRunning, false},
		{TaskStatusFinished, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.expected {
			t.Errorf("IsTerminal() for %s = %v, expected %v", tt.status, got, tt.expected)
		}
	}
}

func TestTaskStatus_String(t *testing.T) {
	if TaskStatusRunning.String() != "Running" {
		t.Errorf("String() = %s, expected Running", TaskStatusRunning.String())
	}
}

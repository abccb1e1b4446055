package model

// TaskStatus represents the status of a download task
type TaskStatus string

const (
	// TaskStatusQueued means the task is waiting for a free download slot
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusRunning means the transfer is in progress
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusFinished means the task finished successfully
	TaskStatusFinished TaskStatus = "Finished"

	// TaskStatusFailed means the task failed with an error
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCancelled means the task was cancelled by the user
	TaskStatusCancelled TaskStatus = "Cancelled"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task still occupies a download slot
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusRunning
}

// IsTerminal returns true if the task reached a final state
func (ts TaskStatus) IsTerminal() bool {
	return ts == TaskStatusFinished || ts == TaskStatusFailed || ts == TaskStatusCancelled
}

package process

// Status is the lifecycle state of a tracked operation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusKilled     Status = "killed"
	StatusCancelled  Status = "cancelled"
)

// IsFinished reports whether the status is terminal.  Terminal statuses are
// absorbing: no transition leaves them.
func (s Status) IsFinished() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusKilled, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the process is currently consuming resources.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// transitions lists the allowed next statuses for each non-terminal status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusQueued, StatusRunning, StatusFailed, StatusKilled, StatusCancelling, StatusCancelled},
	StatusQueued:     {StatusRunning, StatusCancelling, StatusCancelled, StatusKilled},
	StatusRunning:    {StatusPaused, StatusCompleted, StatusFailed, StatusKilled, StatusCancelling},
	StatusPaused:     {StatusRunning, StatusFailed, StatusKilled, StatusCancelling},
	StatusCancelling: {StatusCancelled},
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsFinished() {
		return false
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

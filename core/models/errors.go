package models

import (
	"fmt"
	"time"
)

// ValidationError reports a locally detectable malformed spec. Specs that
// fail validation are never sent to the remote service.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid training spec: %s: %s", e.Field, e.Reason)
}

// SubmissionError reports that the remote service rejected a well-formed
// job creation request. Fatal, never retried.
type SubmissionError struct {
	JobName string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("training job %q rejected by service: %v", e.JobName, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollingError reports a transient status-query failure that exceeded the
// retry budget. The job keeps its last-known status.
type PollingError struct {
	JobName  string
	Attempts int
	Err      error
}

func (e *PollingError) Error() string {
	return fmt.Sprintf("status polling for %q failed after %d attempts: %v", e.JobName, e.Attempts, e.Err)
}

func (e *PollingError) Unwrap() error { return e.Err }

// TimeoutError reports that the caller's deadline elapsed while the remote
// entity was still in a non-terminal state. Distinct from Failed: the job
// may well still be running.
type TimeoutError struct {
	Name       string
	LastStatus string
	Waited     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gave up waiting for %q after %s, last status %s", e.Name, e.Waited, e.LastStatus)
}

// PreconditionError reports an operation invoked against an entity that is
// not in the state the operation requires.
type PreconditionError struct {
	Op   string
	Want string
	Got  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires status %s, got %s", e.Op, e.Want, e.Got)
}

// DecodeError reports a prediction response whose shape does not match
// what the caller expects, usually a vocabulary/model version skew.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot decode prediction response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot decode prediction response: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CancelledError reports that the caller cancelled a wait. StopAcknowledged
// tells whether the best-effort remote stop request went through.
type CancelledError struct {
	JobName          string
	StopAcknowledged bool
}

func (e *CancelledError) Error() string {
	if e.StopAcknowledged {
		return fmt.Sprintf("wait for %q cancelled, remote stop acknowledged", e.JobName)
	}
	return fmt.Sprintf("wait for %q cancelled, remote stop not confirmed", e.JobName)
}

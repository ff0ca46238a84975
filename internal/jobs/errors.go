package jobs

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("job not found")
	ErrAlreadyFinished = errors.New("job already finished")
	ErrUnknownKind     = errors.New("unknown job kind")
	// ErrInProgress means another attempt holds the job and its lease has not expired.
	ErrInProgress = errors.New("job attempt in progress")
)

type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal marks err as a data error: the job fails without further attempts.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}

// RetryableError means the job was moved to retrying and should be redelivered after Backoff.
type RetryableError struct {
	Kind    Kind
	JobID   string
	Attempt int
	Backoff time.Duration
	Err     error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s job %s attempt %d failed, retry in %s: %v", e.Kind, e.JobID, e.Attempt, e.Backoff, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// TerminalError means the job was moved to failed and will not run again.
type TerminalError struct {
	Kind    Kind
	JobID   string
	Attempt int
	Err     error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s job %s failed permanently after attempt %d: %v", e.Kind, e.JobID, e.Attempt, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

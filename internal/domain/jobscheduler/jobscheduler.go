// Package jobscheduler describes the audit trail of queued and executed jobs.
package jobscheduler

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

func (s DispatchStatus) Valid() bool {
	switch s {
	case StatusSent, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// DispatchEvent is one step of a dispatch. Events sharing a DispatchID
// describe the same job run: sent by the scheduler, then completed or failed
// by the handler that executed it.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Provider     string
	MatchID      string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

func (e DispatchEvent) Validate() error {
	if strings.TrimSpace(e.DispatchID) == "" {
		return fmt.Errorf("dispatch id is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown dispatch status %q", e.Status)
	}
	return nil
}

type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}

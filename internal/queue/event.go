// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// TestEventType names what happened to a test.
type TestEventType string

const (
    TestCreated         TestEventType = "test.created"
    TestApprovalUpdated TestEventType = "test.approval_updated"
    TestDeleted         TestEventType = "test.deleted"
)

// TestEvent is published after a test is created, has its approval changed
// or is deleted.  TestID carries the identifier exactly as the client sent
// it for updates and deletes, which may not match any row.  The column
// values are the ones the client supplied, in their JSON types.
type TestEvent struct {
    EventID       string        `json:"event_id"`
    Type          TestEventType `json:"type"`
    TestID        string        `json:"test_id"`
    CaseID        any           `json:"case_id,omitempty"`
    UserID        any           `json:"user_id,omitempty"`
    DeveloperName any           `json:"developer_name,omitempty"`
    Approved      any           `json:"approved"`
    OccurredAt    string        `json:"occurred_at"`
}

// NewTestEvent stamps an event with a fresh id and the current UTC time.
func NewTestEvent(typ TestEventType, testID string) TestEvent {
    return TestEvent{
        EventID:    uuid.NewString(),
        Type:       typ,
        TestID:     testID,
        OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
    }
}

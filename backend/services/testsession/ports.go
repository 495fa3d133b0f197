package testsession

import (
	"context"
)

// DefinitionStore resolves a test definition. Unknown ids return ErrTestNotFound.
type DefinitionStore interface {
	GetTestDefinition(ctx context.Context, testID uint) (*TestDefinition, error)
}

// QuestionBank returns questions keyed by id. Missing ids are simply absent.
type QuestionBank interface {
	GetQuestions(ctx context.Context, ids []uint) (map[uint]*Question, error)
}

type EntitlementChecker interface {
	HasAccess(ctx context.Context, studentID, testID uint) (bool, error)
}

// UserDirectory resolves students. Unknown ids return ErrUserNotFound.
type UserDirectory interface {
	GetUser(ctx context.Context, studentID uint) (*Student, error)
}

const (
	EventSessionStarted   = "test.session.started"
	EventSessionAbandoned = "test.session.abandoned"
	EventSessionTimedOut  = "test.session.timeout"
	EventSessionClosed    = "test.session.terminated"
	EventAttemptSubmitted = "test.attempt.submitted"
)

// Publisher delivers lifecycle events to audit/notification consumers.
// Events are published after commit; a failed publish never fails the call.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

type SessionEvent struct {
	SessionToken  string  `json:"session_token"`
	AttemptID     uint    `json:"attempt_id"`
	TestID        uint    `json:"test_id"`
	StudentID     uint    `json:"student_id"`
	AttemptNumber int     `json:"attempt_number"`
	Status        string  `json:"status"`
	Marks         float64 `json:"marks,omitempty"`
	Percentage    float64 `json:"percentage,omitempty"`
	IsPassed      bool    `json:"is_passed,omitempty"`
}

package testsession

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAccessDenied
	KindConflict
	KindInvalidState
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a semantic rejection. None of them are retryable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrTestNotFound     = &Error{KindNotFound, "test_not_found", "test not found"}
	ErrUserNotFound     = &Error{KindNotFound, "user_not_found", "user not found"}
	ErrSessionNotFound  = &Error{KindNotFound, "session_not_found", "session not found"}
	ErrAttemptNotFound  = &Error{KindNotFound, "attempt_not_found", "attempt not found"}
	ErrQuestionNotFound = &Error{KindNotFound, "question_not_found", "question not found"}
	ErrNoActiveSession  = &Error{KindNotFound, "no_active_session", "no active session for this test"}

	ErrAccessDenied = &Error{KindAccessDenied, "access_denied", "access denied"}

	ErrSessionAlreadyActive = &Error{KindConflict, "session_already_active", "an active session already exists for this test, resume it instead"}
	ErrAttemptLimitReached  = &Error{KindConflict, "attempt_limit_reached", "attempt limit reached"}
	ErrAlreadySubmitted     = &Error{KindConflict, "already_submitted", "test already submitted"}

	ErrSessionClosed       = &Error{KindInvalidState, "session_closed", "session is closed"}
	ErrSessionExpired      = &Error{KindInvalidState, "session_expired", "session time has expired, submit the test"}
	ErrQuestionNotInTest   = &Error{KindInvalidState, "question_not_in_test", "question is not part of this test"}
	ErrOptionNotInQuestion = &Error{KindInvalidState, "option_not_in_question", "option does not belong to this question"}
	ErrNotSubmitted        = &Error{KindInvalidState, "attempt_not_submitted", "attempt has not been submitted"}

	ErrTestUnavailable = &Error{KindUnavailable, "test_unavailable", "test is not available"}
	ErrTestNotStarted  = &Error{KindUnavailable, "test_not_started", "test is not open yet"}
	ErrTestEnded       = &Error{KindUnavailable, "test_ended", "test is closed"}
	ErrTestEmpty       = &Error{KindUnavailable, "test_empty", "test has no questions"}
)

// KindOf classifies err. Anything that is not an *Error is Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// internal wraps a store failure so callers see it as opaque.
func internal(op string, err error) error {
	return fmt.Errorf("testsession: %s: %w", op, err)
}

// IsUniqueViolation reports whether err comes from a unique index, on
// Postgres or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input (bad FDX/PDF structure, oversize
	// content). Validation failures are terminal; the job fails without retry.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrExpired marks staged content whose TTL elapsed before consumption.
	ErrExpired = errors.New("content expired")
	// ErrTimeout marks a stage or provider call that exceeded its deadline.
	// Timeouts are transient and eligible for retry.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks provider or network failures worth retrying.
	ErrTransient = errors.New("transient failure")
	// ErrConflict marks a conditional update that lost a race.
	ErrConflict = errors.New("conflict")
	// ErrGone marks a one-shot resource that was already consumed.
	ErrGone = errors.New("gone")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether an error should be retried with backoff rather
// than failing its job or scene immediately.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// Reason extracts a user-safe failure reason from a stage error. The sentinel
// prefix is stripped so job records carry the detail, not the classification.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	message := strings.TrimSpace(err.Error())
	for _, sentinel := range []error{
		ErrValidation, ErrConfiguration, ErrNotFound, ErrExpired,
		ErrTimeout, ErrTransient, ErrConflict, ErrGone,
	} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(message, prefix))
		}
	}
	return message
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

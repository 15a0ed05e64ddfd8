package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAmbiguous     = errors.New("ambiguous match")
	ErrExists        = errors.New("already exists")
	ErrPrivileged    = errors.New("privileged helper failure")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
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

// Fatal reports whether an error must abort the whole batch rather than be
// recorded against a single key. Only bad configuration and privileged helper
// failures qualify.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrPrivileged)
}

// SkipReason returns a short reason string when the error represents a
// per-key skip condition rather than a genuine failure.
func SkipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not found", true
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous", true
	case errors.Is(err, ErrExists):
		return "already exists", true
	default:
		return "", false
	}
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

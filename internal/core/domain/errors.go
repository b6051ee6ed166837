package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrLinkNotFound      = errors.New("workspace link not found")
	ErrSelfLink          = errors.New("workspace cannot link to itself")
	ErrDuplicateLink     = errors.New("workspace link already exists")
	ErrIndexUnavailable  = errors.New("search index unavailable")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

package promptsync

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrTemplateNotFound indicates a template was not found
	ErrTemplateNotFound = errors.New("template not found")

	// ErrItemNotFound indicates a catalog item was not found
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrUnknownKind indicates an unrecognized catalog kind
	ErrUnknownKind = errors.New("unknown catalog kind")

	// ErrNotOwner indicates a mutation attempted by a non-owner
	ErrNotOwner = errors.New("caller does not own this item")

	// ErrBackendNotFound indicates a storage backend was not found
	ErrBackendNotFound = errors.New("storage backend not found")
)

// PersistenceError represents a failed remote call against the document
// store. Failures propagate unchanged; there is no retry and no rollback of
// earlier writes in the same operation, so a mirror may be left inconsistent
// until the next successful save or update.
type PersistenceError struct {
	Collection string
	Key        string
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed for %s/%s: %v", e.Op, e.Collection, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AuthorizationError represents a mutation attempted by a non-owner.
type AuthorizationError struct {
	UserID string
	ItemID string
	Op     string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not authorized to %s item %s", e.UserID, e.Op, e.ItemID)
}

func (e *AuthorizationError) Unwrap() error {
	return ErrNotOwner
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

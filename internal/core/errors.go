package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrSchema             = errors.New("storage schema mismatch")
	ErrPartialWrite       = errors.New("partial write")
)

// ValidationError reports the input field that was rejected. Nothing is written
// when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageUnavailableError means the backing store could not be reached or
// refused our credentials. Detail holds the upstream diagnostic verbatim.
type StorageUnavailableError struct {
	Backend string
	Detail  string
	Err     error
}

func (e *StorageUnavailableError) Error() string {
	msg := fmt.Sprintf("%s storage unavailable", e.Backend)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil && !strings.Contains(msg, e.Err.Error()) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// SchemaError names the table, and the column when known, that the backing
// store is missing.
type SchemaError struct {
	Table  Table
	Column string
	Detail string
}

func (e *SchemaError) Error() string {
	var msg string
	if e.Column == "" {
		msg = fmt.Sprintf("table %q is missing from storage", e.Table)
	} else {
		msg = fmt.Sprintf("table %q is missing column %q", e.Table, e.Column)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// PendingRow is a row of a multi-row event that has not been confirmed as
// written. Baseline is how many identical rows the table held before the event.
type PendingRow struct {
	Table    Table
	Row      Row
	Baseline int
}

// PartialWriteError is returned when a multi-row event stored its first rows
// but failed on a later one. The ledger needs reconciliation: either resume the
// pending rows or fix them by hand.
type PartialWriteError struct {
	Event   string
	Written []PendingRow
	Pending []PendingRow
	Err     error
}

func (e *PartialWriteError) Error() string {
	tables := make([]string, 0, len(e.Pending))
	for _, p := range e.Pending {
		tables = append(tables, string(p.Table))
	}
	return fmt.Sprintf("partial write in %s: %d row(s) written, %d pending [%s]: %v",
		e.Event, len(e.Written), len(e.Pending), strings.Join(tables, ", "), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}

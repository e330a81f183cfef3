package etl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("object not found")
	ErrAccess        = errors.New("access denied")
	ErrParse         = errors.New("parse error")
	// ErrInvalidRecord is a ParseError raised for JSON that parses but cannot
	// be transformed, e.g. a non-object line or a non-string name.
	ErrInvalidRecord = fmt.Errorf("%w: invalid record", ErrParse)
)

type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required job parameters: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ParseError reports the 1-based line of the input that could not be turned
// into a record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// StorageError wraps a failure from an object store call. Kind is one of
// ErrNotFound or ErrAccess, or nil for anything else.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

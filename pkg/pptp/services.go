package pptp

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when a Ruby source file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrServiceUnavailable is returned by RubyServices that cannot
	// inspect Ruby sources at all.
	ErrServiceUnavailable = errors.New("ruby services unavailable")
)

// SyntaxError reports malformed Ruby source.
type SyntaxError struct {
	File    string
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// FunctionInfo describes a function declared with newfunction.
type FunctionInfo struct {
	Name          string
	RValue        bool
	Documentation string
}

// TypeInfo describes a type declared with newtype, or the properties a file
// adds to an existing type.
type TypeInfo struct {
	Name          string
	Documentation string
	Parameters    []Entry
	Properties    []Entry
}

// RubyServices extracts Puppet metadata from Ruby source files.
type RubyServices interface {
	// FunctionInfo returns the functions declared in a file.
	FunctionInfo(path string) ([]FunctionInfo, error)
	// TypeInfo returns the types declared in a file.
	TypeInfo(path string) ([]TypeInfo, error)
	// TypeProperties returns properties that a file adds to types declared
	// elsewhere.
	TypeProperties(path string) ([]TypeInfo, error)
}

// MockService stands in when no Ruby services are available. Every call
// fails with ErrServiceUnavailable, which loaders treat as an empty result.
type MockService struct{}

var _ RubyServices = MockService{}

func (MockService) FunctionInfo(string) ([]FunctionInfo, error) {
	return nil, ErrServiceUnavailable
}

func (MockService) TypeInfo(string) ([]TypeInfo, error) {
	return nil, ErrServiceUnavailable
}

func (MockService) TypeProperties(string) ([]TypeInfo, error) {
	return nil, ErrServiceUnavailable
}

// Package types contains shared types used across the schemaguard test framework
package types

import (
	"fmt"
	"strings"
)

// TestStatus represents the possible states of a schema test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// Severity controls whether a failing test flips the overall run outcome.
// SeverityError failures fail the run; SeverityWarn failures are recorded
// but leave the run status untouched.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
)

// String implements the Stringer interface for Severity
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a severity string case-insensitively.
// An empty string defaults to SeverityError.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ERROR":
		return SeverityError, nil
	case "WARN":
		return SeverityWarn, nil
	default:
		return "", fmt.Errorf("invalid severity %q (expected 'error' or 'warn')", s)
	}
}

package output

import (
	"fmt"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
)

// ExitCode represents the CLI exit code.
type ExitCode int

const (
	// ExitCodeSuccess indicates no findings, or no --fail-on match.
	ExitCodeSuccess ExitCode = 0

	// ExitCodeFindings indicates findings match --fail-on severities.
	ExitCodeFindings ExitCode = 1

	// ExitCodeError indicates a configuration or execution error.
	ExitCodeError ExitCode = 2
)

// InvalidSeverityError is returned for an unknown severity name.
type InvalidSeverityError struct {
	Severity string
	Valid    []string
}

func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid severity '%s', must be one of: %s",
		e.Severity, strings.Join(e.Valid, ", "))
}

var validSeverities = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

// ValidateSeverities checks a --fail-on severity list.
func ValidateSeverities(severities []string) error {
	for _, severity := range severities {
		if !validSeverities[strings.ToLower(severity)] {
			return &InvalidSeverityError{
				Severity: severity,
				Valid:    []string{"critical", "high", "medium", "low"},
			}
		}
	}
	return nil
}

// DetermineExitCode calculates the exit code from the run outcome.
//
// Precedence: execution errors, then --fail-on severity matches, then
// success. With no --fail-on configured, findings never fail the run.
func DetermineExitCode(vulns []*taint.Vulnerability, failOn []string, hadErrors bool) ExitCode {
	if hadErrors {
		return ExitCodeError
	}
	if len(failOn) == 0 {
		return ExitCodeSuccess
	}

	failSet := make(map[string]bool, len(failOn))
	for _, severity := range failOn {
		failSet[strings.ToLower(severity)] = true
	}
	for _, vuln := range vulns {
		if failSet[string(vuln.Severity)] {
			return ExitCodeFindings
		}
	}
	return ExitCodeSuccess
}

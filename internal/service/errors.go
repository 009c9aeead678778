package service

import (
	"fmt"
	"strings"

	"orgstruct-web/internal/models"
)

// MissingRef is a row whose foreign-key code resolves to nothing, neither
// in the store nor in the uploaded batch.
type MissingRef struct {
	Code        string `json:"code"`
	MissingCode string `json:"missing_code"`
	SourceRow   int    `json:"source_row"`
}

// ValidationError is raised before any write happens. The caller can fix
// the input and retry; the store was not touched.
type ValidationError struct {
	MissingDepartmentRefs []MissingRef `json:"missing_department_refs,omitempty"`
	MissingParentRefs     []MissingRef `json:"missing_parent_refs,omitempty"`
	MissingReportsToRefs  []MissingRef `json:"missing_reports_to_refs,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, r := range e.MissingParentRefs {
		parts = append(parts, fmt.Sprintf("department %q references unknown parent %q (row %d)", r.Code, r.MissingCode, r.SourceRow))
	}
	for _, r := range e.MissingDepartmentRefs {
		parts = append(parts, fmt.Sprintf("position %q references unknown department %q (row %d)", r.Code, r.MissingCode, r.SourceRow))
	}
	for _, r := range e.MissingReportsToRefs {
		parts = append(parts, fmt.Sprintf("position %q reports to unknown position %q (row %d)", r.Code, r.MissingCode, r.SourceRow))
	}
	return "import validation failed: " + strings.Join(parts, "; ")
}

// UnresolvedDependency names a record the hierarchy creator could not
// place and the parent code it was waiting for.
type UnresolvedDependency struct {
	Code          string `json:"code"`
	MissingParent string `json:"missing_parent"`
}

// DependencyResolutionError means the multi-pass creator stopped making
// progress: either a cycle / missing external parent (PassLimitHit false)
// or the pass cap ran out (PassLimitHit true). Records created in earlier
// passes stay persisted; there is no rollback.
type DependencyResolutionError struct {
	Unresolved   []UnresolvedDependency `json:"unresolved"`
	Passes       int                    `json:"passes"`
	PassLimitHit bool                   `json:"pass_limit_hit"`
}

func (e *DependencyResolutionError) Error() string {
	codes := make([]string, 0, len(e.Unresolved))
	for _, u := range e.Unresolved {
		codes = append(codes, fmt.Sprintf("%s (waiting for %s)", u.Code, u.MissingParent))
	}
	if e.PassLimitHit {
		return fmt.Sprintf("dependency resolution exhausted %d passes, unresolved: %s", e.Passes, strings.Join(codes, ", "))
	}
	return fmt.Sprintf("dependency resolution stalled after %d passes, unresolved: %s", e.Passes, strings.Join(codes, ", "))
}

// ImportError wraps an unrecoverable mid-run failure together with the
// partial result accumulated before it, so callers can report "N
// succeeded before failure" instead of an opaque error.
type ImportError struct {
	Stage   string
	Partial *models.ImportResult
	Err     error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import failed during %s: %v", e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

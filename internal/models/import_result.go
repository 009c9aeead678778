package models

import "time"

// RecordFailure describes a single row that could not be written during
// an otherwise continuing import run.
type RecordFailure struct {
	Sheet  string `json:"sheet"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// ImportResult aggregates what one import execution did. On mid-run
// failures the partial counts accumulated so far are still reported.
type ImportResult struct {
	DepartmentsCreated int             `json:"departments_created"`
	DepartmentsUpdated int             `json:"departments_updated"`
	PositionsCreated   int             `json:"positions_created"`
	PositionsUpdated   int             `json:"positions_updated"`
	TotalDepartments   int             `json:"total_departments"`
	TotalPositions     int             `json:"total_positions"`
	Failures           []RecordFailure `json:"failures,omitempty"`
}

// RowError is a pre-import validation problem on one workbook row.
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

// WorkbookParseResult is what parsing an uploaded workbook yields:
// valid rows plus every validation error found, so the caller can render
// a full error report instead of failing on the first bad cell.
type WorkbookParseResult struct {
	Rows             ImportRows `json:"rows"`
	ValidationErrors []RowError `json:"validation_errors"`
	TotalRows        int        `json:"total_rows"`
	ValidCount       int        `json:"valid_count"`
	ErrorCount       int        `json:"error_count"`
	ImportTime       time.Time  `json:"import_time"`
}

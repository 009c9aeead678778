package models

import (
	"database/sql"
	"time"
)

// OperationType tells the executor whether a row matches an existing
// entity (by code) or is new to the organization.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
)

type Organization struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentRecord is a department row extracted from a workbook.
// Code is the natural key within the organization; ParentCode references
// another department by code, not by id.
type DepartmentRecord struct {
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	ParentCode string            `json:"parent_code,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	SourceRow  int               `json:"source_row"`
	Operation  OperationType     `json:"operation,omitempty"`
}

// PositionRecord is a position row extracted from a workbook.
// DepartmentCode is required; ReportsToCode references another position
// by code and may be empty.
type PositionRecord struct {
	Code            string        `json:"code"`
	Title           string        `json:"title"`
	DepartmentCode  string        `json:"department_code"`
	ReportsToCode   string        `json:"reports_to_code,omitempty"`
	IsManager       bool          `json:"is_manager"`
	IncumbentsCount int           `json:"incumbents_count"`
	IsActive        bool          `json:"is_active"`
	SourceRow       int           `json:"source_row"`
	Operation       OperationType `json:"operation,omitempty"`
}

// ImportRows holds both sheets of one uploaded workbook.
type ImportRows struct {
	Departments []DepartmentRecord `json:"departments"`
	Positions   []PositionRecord   `json:"positions"`
}

// BatchResult reports one batch insert: how many rows the store accepted
// and the generated id for every inserted code.
type BatchResult struct {
	AffectedRows int              `json:"affected_rows"`
	IDsByCode    map[string]int64 `json:"ids_by_code"`
}

// Department is the persisted entity.
type Department struct {
	ID             int64          `db:"id" json:"id"`
	OrganizationID int64          `db:"organization_id" json:"organization_id"`
	Code           string         `db:"code" json:"code"`
	Name           string         `db:"name" json:"name"`
	ParentID       sql.NullInt64  `db:"parent_id" json:"parent_id"`
	Metadata       sql.NullString `db:"metadata" json:"metadata"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Position is the persisted entity.
type Position struct {
	ID              int64         `db:"id" json:"id"`
	OrganizationID  int64         `db:"organization_id" json:"organization_id"`
	Code            string        `db:"code" json:"code"`
	Title           string        `db:"title" json:"title"`
	DepartmentID    int64         `db:"department_id" json:"department_id"`
	ReportsToID     sql.NullInt64 `db:"reports_to_id" json:"reports_to_id"`
	IsManager       bool          `db:"is_manager" json:"is_manager"`
	IncumbentsCount int           `db:"incumbents_count" json:"incumbents_count"`
	IsActive        bool          `db:"is_active" json:"is_active"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
